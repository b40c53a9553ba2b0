// Package api provides JSON endpoints over the document and chat store.
//
// The app mounts it under /api.
//
// # Endpoints
//
// Documents:
//   - GET /documents - List documents, newest first (paginated)
//   - GET /documents/{id} - Document with rendered HTML (?engine=katex|mathjax)
//   - POST /documents - Create a document from {"title", "body"}
//
// Conversations:
//   - GET /conversations - List conversations by recent activity (paginated)
//   - GET /conversations/{id} - Conversation with its messages
//
// Rendering:
//   - GET /engines - Available math engines and the default
//   - POST /render - Render {"markdown", "engine"} without storing it
//
// Responses are wrapped as {"data", "error", "meta"}.
package api
