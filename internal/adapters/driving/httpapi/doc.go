// Package httpapi exposes the document registry over HTTP with gin.
//
// Routes:
//
//	GET    /api/health           capability and backend status
//	POST   /api/upload           multipart upload (field "file")
//	POST   /api/analyze/:id      ingest a document (?async=true returns 202)
//	POST   /api/chat             answer a question about a ready document
//	GET    /api/documents        list documents
//	GET    /api/documents/:id    document detail with vector count
//	DELETE /api/documents/:id    delete a document
//	GET    /api/events           progress events as server-sent events
package httpapi
