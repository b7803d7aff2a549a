package verifit

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "remcli/internal/errors"
	"remcli/internal/files"
	"remcli/pkg/contracts/domain"
)

// sessionXML mirrors the vendor schema: a root element wrapping repeated
// test elements, each holding data payloads distinguished by attributes
// rather than element names.
type sessionXML struct {
	Tests []testXML `xml:"test"`
}

type testXML struct {
	Name string    `xml:"name,attr"`
	Side string    `xml:"side,attr"`
	Data []dataXML `xml:"data"`
}

type dataXML struct {
	Name      string `xml:"name,attr"`
	StimLevel string `xml:"stim_level,attr"`
	StimType  string `xml:"stim_type,attr"`
	Internal  string `xml:"internal,attr"`
	YUnit     string `xml:"yunit,attr"`
	Text      string `xml:",chardata"`
}

// Document is one parsed session file. Lookups scan test elements in
// document order and return the first data node that matches, which is how
// the instrument's own software addresses these files; later duplicates are
// never consulted.
type Document struct {
	// Filename is the stem of the source path. Every table row produced
	// from this document carries it.
	Filename string

	root sessionXML
}

// ParseFile reads and parses one session file from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	return Parse(f, files.SessionStem(filepath.Base(path)))
}

// Parse decodes a session document from r. The filename is recorded as-is
// and should already be a path stem.
func Parse(r io.Reader, filename string) (*Document, error) {
	var root sessionXML
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("session XML for %s is not well-formed", filename), err).
			WithContext("file", filename)
	}

	return &Document{Filename: filename, root: root}, nil
}

// dataBySide returns the first data node satisfying pred under any test
// element carrying the given side attribute.
func (d *Document) dataBySide(side domain.Channel, pred func(dataXML) bool) (dataXML, bool) {
	for _, t := range d.root.Tests {
		if t.Side != string(side) {
			continue
		}
		for _, node := range t.Data {
			if pred(node) {
				return node, true
			}
		}
	}
	return dataXML{}, false
}

// measuredNode locates the sample array for one stimulus level and channel.
func (d *Document) measuredNode(side domain.Channel, level domain.StimulusLevel) (dataXML, bool) {
	return d.dataBySide(side, func(n dataXML) bool {
		return n.StimLevel == string(level)
	})
}

// mpoNode locates the peak-output sweep for one channel.
func (d *Document) mpoNode(side domain.Channel) (dataXML, bool) {
	return d.dataBySide(side, func(n dataXML) bool {
		return n.StimType == "mpo"
	})
}

// internalNode locates a data node by its internal attribute, the vendor's
// slot-addressed naming used for curve arrays and targets.
func (d *Document) internalNode(side domain.Channel, internal string) (dataXML, bool) {
	return d.dataBySide(side, func(n dataXML) bool {
		return n.Internal == internal
	})
}

// namedNode locates a data node by its name attribute.
func (d *Document) namedNode(side domain.Channel, name string) (dataXML, bool) {
	return d.dataBySide(side, func(n dataXML) bool {
		return n.Name == name
	})
}

// gridNode locates one of the frequency grids under the dedicated
// frequencies test element.
func (d *Document) gridNode(name string) (dataXML, bool) {
	for _, t := range d.root.Tests {
		if t.Name != "frequencies" {
			continue
		}
		for _, node := range t.Data {
			if node.Name == name {
				return node, true
			}
		}
	}
	return dataXML{}, false
}
