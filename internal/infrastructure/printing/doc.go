// Package printing renders donation receipts to PDF with headless Chrome.
//
// The receipt HTML comes from an embedded html/template; ChromedpRenderer
// turns it into an A4 document through the DevTools printToPDF call.
package printing
