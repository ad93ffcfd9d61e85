// Package server exposes the note library and the rendering pipeline over
// HTTP.
//
// # Routes
//
//	GET  /                          index page
//	GET  /healthz                   liveness
//	GET  /static/note.css           note stylesheet
//	GET  /static/highlight.css      code highlight stylesheet
//	POST /api/preview               render a stored note
//	POST /api/render                render posted Markdown
//	GET  /api/library/list          list a folder
//	GET  /api/library/folders       list every folder
//	GET  /api/library/read          read a note
//	GET  /api/library/search        fuzzy search note paths
//	POST /api/library/upload        multipart upload
//	POST /api/library/create-folder
//	POST /api/library/create-file
//	POST /api/library/delete
//	POST /api/library/move
//	POST /api/library/rename
//	POST /api/library/save
//	GET  /api/export/pdf            export a stored note as PDF
//
// Successful JSON responses carry "success": true. Failures carry a single
// "error" field with a status derived from the library sentinel errors:
// traversal 403, missing 404, conflicts and bad input 400, oversized
// bodies 413, anything else 500.
package server
