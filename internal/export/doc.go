// Package export turns a rendered note into a standalone HTML page and
// prints that page to PDF with headless Chrome.
//
// The page is built from the document template, gets the note stylesheet
// and the highlight stylesheet injected as <style> blocks, and has relative
// image and link paths rewritten to file:// URLs under the note's folder so
// the browser can resolve them from a temporary file.
package export
