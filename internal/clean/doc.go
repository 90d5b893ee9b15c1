// Package clean strips non-content nodes from HTML documents.
//
// Cleaning is category-based and flag-driven: scripts, styles,
// comments, known tracker embeds, and known ad containers can each be
// removed independently. The package also offers standalone passes
// for boilerplate chrome, promotional spam, and a main-content
// heuristic used by text extraction.
package clean
