// Package pipeline implements the Markdown-to-HTML rendering pipeline.
//
// Content the generic renderer would corrupt is lifted out of the source
// before rendering and put back afterwards:
//   - Diagram fences, block and inline math, and strikethrough spans are
//     replaced with inert tokens held in a per-render Vault
//   - List indentation is normalized to four columns per nesting level
//   - The protected text is rendered by goldmark with a fixed extension set
//   - Tokens are located in the HTML and replaced with their final markup
//
// Every pass is a plain function over text so the order of passes can be
// tested in isolation. A Processor wires them in the fixed order and is safe
// to share between goroutines; all per-render state lives in the Vault.
package pipeline
