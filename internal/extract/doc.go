// Package extract parses HTML into the normalized structured content
// model: title, headings, paragraphs, resolved links and images,
// document metadata, and heading-delimited sections.
//
// Extraction is tolerant by design. Malformed HTML degrades to
// partially empty fields, and individual malformed URLs are skipped
// rather than reported; extraction itself never fails on bad markup.
package extract
