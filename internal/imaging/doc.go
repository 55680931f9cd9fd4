// Package imaging converts downloaded images to JPEG for embedding in
// crawl documents, honoring EXIF orientation so photos display upright.
package imaging
