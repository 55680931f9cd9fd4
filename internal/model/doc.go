// Package model defines the core data types shared across webdoc:
// frontier entries, per-page crawl results, and the serializable crawl
// state used for pause/resume.
//
// The types in this package are plain data with no behavior beyond
// small helpers. Components communicate by passing these values;
// ownership rules (who mutates what) are documented on each type.
package model
