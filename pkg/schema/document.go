// Package schema walks a resource agent metadata document and extracts the
// typed pieces of a rule definition from it.
package schema

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
)

// VendorTag is the tag of the special block carrying cluster specific hints.
const VendorTag = "rgmanager"

// Document is a parsed metadata document.
type Document struct {
	root *xmlquery.Node
}

// Parse parses raw metadata output into a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata XML: %w", err)
	}
	return &Document{root: root}, nil
}

// Block locates the Nth resource-agent block of a document (1-based).
type Block struct {
	Index int
}

// Base is the path of the block itself.
func (b Block) Base() string {
	return fmt.Sprintf("/resource-agent[%d]", b.Index)
}

// Special is the path of the block's vendor section.
func (b Block) Special() string {
	return fmt.Sprintf("%s/special[@tag=%q]", b.Base(), VendorTag)
}

// Actions is the path of the block's actions section.
func (b Block) Actions() string {
	return b.Base() + "/actions"
}

// Parameters is the path of the block's parameters section.
func (b Block) Parameters() string {
	return b.Base() + "/parameters"
}

// Attr returns the attribute attr of the first element matching elemPath.
// The boolean is false if the element or the attribute is absent.
func (d *Document) Attr(elemPath, attr string) (string, bool) {
	node, err := xmlquery.Query(d.root, elemPath)
	if err != nil || node == nil {
		return "", false
	}
	for _, a := range node.Attr {
		if a.Name.Local == attr {
			return a.Value, true
		}
	}
	return "", false
}

// Name returns a non-empty attribute value. Entry loops use it to find the
// first entry without a name.
func (d *Document) Name(elemPath, attr string) (string, bool) {
	v, ok := d.Attr(elemPath, attr)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// TypeName returns the declared type name of block b.
func (d *Document) TypeName(b Block) (string, bool) {
	return d.Name(b.Base(), "name")
}

// Blocks returns every resource-agent block in the document, stopping at the
// first one without a type name.
func (d *Document) Blocks() []Block {
	var blocks []Block
	for i := 1; ; i++ {
		b := Block{Index: i}
		if _, ok := d.TypeName(b); !ok {
			return blocks
		}
		blocks = append(blocks, b)
	}
}
