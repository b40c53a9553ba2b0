package mdchat

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// MountSelector selects the element of the page shell the views render into.
const MountSelector = "#app"

// findMountPoint returns the element of doc matching selector. Only id
// selectors ("#id") are supported.
func findMountPoint(doc io.Reader, selector string) (*html.Node, error) {
	id, ok := strings.CutPrefix(selector, "#")
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: unsupported selector %q", ErrInvalidConfig, selector)
	}

	root, err := html.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse shell: %w", err)
	}

	if node := findByID(root, id); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMountPointNotFound, selector)
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Namespace == "" && attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
