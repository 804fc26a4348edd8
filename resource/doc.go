// Package resource bounds the memory, build concurrency and snapshot IO
// used by caches and datasets.
//
// A single Controller may be shared by many caches, datasets and machines
// across a process. A nil *Controller is valid and imposes no limits.
package resource
