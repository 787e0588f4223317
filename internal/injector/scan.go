// Package injector augments a third-party page's DOM with print actions: it
// scans the parsed tree for printable images, attaches action buttons, and
// runs the modal flow that turns a click into a saved print order. It talks
// to the background coordinator through the message bus only.
package injector

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerClass tags injected buttons. A container already holding a node with
// this class is skipped on re-scans, which keeps scanning idempotent.
const MarkerClass = "tekpress-print-btn"

// OverlayClass tags the modal overlay node. At most one exists per document.
const OverlayClass = "tekpress-modal-overlay"

// containerTestIDs are the host site's known pin wrapper markers.
var containerTestIDs = map[string]bool{
	"pin":                true,
	"pinWrapper":         true,
	"pin-visual-wrapper": true,
}

const containerClass = "PinImage"

// Button records one injected action: the container it was attached to and
// the image URL the button carries.
type Button struct {
	ImageURL  string
	Container *html.Node
}

// Scanner finds printable images and decorates their containers.
type Scanner struct{}

// Scan walks doc, attaches a print button to every undecorated printable
// image container, and returns the buttons added by this pass. Calling it
// again on an unchanged document adds nothing.
func (Scanner) Scan(doc *html.Node) []Button {
	var added []Button
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Img {
			continue
		}
		container := printableContainer(n)
		if container == nil || hasDescendantWithClass(container, MarkerClass) {
			continue
		}
		imageURL := bestImageURL(n)
		if imageURL == "" {
			continue
		}
		container.AppendChild(buttonNode(imageURL))
		added = append(added, Button{ImageURL: imageURL, Container: container})
	}
	return added
}

// printableContainer resolves the nearest ancestor matching the host site's
// pin markup patterns, or nil if the image is not printable.
func printableContainer(img *html.Node) *html.Node {
	for n := img.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if containerTestIDs[attrVal(n, "data-test-id")] || hasClass(n, containerClass) {
			return n
		}
	}
	return nil
}

// bestImageURL picks the highest-resolution candidate: the last srcset entry
// wins over src, since the site orders candidates ascending by resolution.
func bestImageURL(img *html.Node) string {
	if srcset := attrVal(img, "srcset"); srcset != "" {
		parts := strings.Split(srcset, ",")
		last := strings.Fields(strings.TrimSpace(parts[len(parts)-1]))
		if len(last) > 0 {
			return last[0]
		}
	}
	return attrVal(img, "src")
}

func buttonNode(imageURL string) *html.Node {
	btn := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Button,
		Data:     "button",
		Attr: []html.Attribute{
			{Key: "class", Val: MarkerClass},
			{Key: "data-image-url", Val: imageURL},
		},
	}
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: "Print"})
	return btn
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func hasDescendantWithClass(n *html.Node, class string) bool {
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && hasClass(d, class) {
			return true
		}
	}
	return false
}

// removeNodesWithClass detaches every element carrying the class from doc.
func removeNodesWithClass(doc *html.Node, class string) int {
	var doomed []*html.Node
	for n := range doc.Descendants() {
		if n.Type == html.ElementNode && hasClass(n, class) {
			doomed = append(doomed, n)
		}
	}
	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}
	return len(doomed)
}
