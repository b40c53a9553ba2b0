// Package frontend provides the SSR views and form actions for mdchat.
//
// The frontend uses HTMX for navigation and Tailwind CSS for styling,
// both loaded via CDN for simplicity. Math is typeset in the browser by
// whichever engines the renderer registered.
//
// # Routes
//
// Views (dispatched by the route table):
//   - GET / - Document list and the selected document (?doc=, ?engine=)
//   - GET /chat - Conversation list and the selected conversation (?conversation=)
//
// Actions:
//   - POST /content - Create a document, then redirect to it
//   - POST /chat/send - Append a message and the assistant's reply
//
// Static Assets:
//   - GET /static/* - Embedded static files (JS, CSS)
//   - GET /healthz - Liveness check
package frontend
