// Package domain contains the core build model: asset nodes, the dependency graph and configuration.
package domain

import (
	"path/filepath"
	"strings"
)

// NodeType identifies the kind of resource an AssetNode stands for.
type NodeType string

const (
	// NodeCSS is a stylesheet.
	NodeCSS NodeType = "css"
	// NodeJS is a script.
	NodeJS NodeType = "js"
	// NodeImage is an image or embedded object.
	NodeImage NodeType = "img"
	// NodeTemplate is an includable template.
	NodeTemplate NodeType = "tmpl"
	// NodePage is an HTML page that produces an output file.
	NodePage NodeType = "page"
)

// NodeTypes lists every node type in processing order.
var NodeTypes = []NodeType{NodeTemplate, NodePage, NodeCSS, NodeJS, NodeImage}

// AssetNode is the identity of a discovered resource.
type AssetNode struct {
	Type NodeType
	// Name is the path relative to the source root with forward slashes, or the
	// base name without extension for templates.
	Name string
	// AbsPath is the absolute file path, or the source URL for remote resources.
	AbsPath string
}

// NewAssetNode creates an AssetNode.
func NewAssetNode(t NodeType, name, absPath string) *AssetNode {
	return &AssetNode{Type: t, Name: name, AbsPath: absPath}
}

// ID returns the graph identity of the node.
func (n *AssetNode) ID() string {
	return NodeID(n.Type, n.Name)
}

// NodeID builds the graph identity "type:name".
func NodeID(t NodeType, name string) string {
	return string(t) + ":" + name
}

// ParseNodeID splits a graph identity into its type and name.
func ParseNodeID(id string) (NodeType, string, bool) {
	t, name, ok := strings.Cut(id, ":")
	if !ok {
		return "", "", false
	}
	return NodeType(t), name, true
}

// TemplateName derives a template name from its file path. Names are lower case because
// HTML tag names, and with them include tags, are case-insensitive.
func TemplateName(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
