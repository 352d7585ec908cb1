package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Attribute aliases accepted on read. The first name in each list is the
// canonical one emitted on write; the rest are what older writers produced.
var (
	aliasInputCount  = []string{"inputCount", "inputs"}
	aliasOutputCount = []string{"outputCount", "outputs"}
	aliasSourceNode  = []string{"sourceNodeId", "fromNode", "from"}
	aliasSourceIndex = []string{"sourceSocketIndex", "fromSocketIndex", "from-socket"}
	aliasTargetNode  = []string{"targetNodeId", "toNode", "to"}
	aliasTargetIndex = []string{"targetSocketIndex", "toSocketIndex", "to-socket"}
)

// Decoder reads a board document, accumulating per-entity malformations
// instead of aborting on them.
type Decoder struct {
	dec       *xml.Decoder
	malformed []error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: xml.NewDecoder(r)}
}

// Decode parses the whole document. Entities that cannot be read are
// skipped and recorded (see Malformed); only document-level problems such
// as invalid XML or a wrong root element are returned as an error.
func (d *Decoder) Decode() (*Document, error) {
	doc := New()
	rootSeen := false

	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !rootSeen {
			if se.Name.Local != "graph" {
				return nil, fmt.Errorf("invalid document: root element %q, want \"graph\"", se.Name.Local)
			}
			rootSeen = true
			if v := attrValue(se.Attr, "version"); v != "" {
				doc.Version = v
			}
			continue
		}

		switch se.Name.Local {
		case "nodes", "edges":
			// Container wrappers from older writers; entities sit inside.
		case "node":
			if rec, err := parseNodeAttrs(se.Attr); err != nil {
				d.malformed = append(d.malformed, err)
			} else {
				doc.Nodes = append(doc.Nodes, rec)
			}
			if err := d.dec.Skip(); err != nil {
				return nil, fmt.Errorf("parse document: %w", err)
			}
		case "edge":
			if rec, err := parseEdgeAttrs(se.Attr); err != nil {
				d.malformed = append(d.malformed, err)
			} else {
				doc.Edges = append(doc.Edges, rec)
			}
			if err := d.dec.Skip(); err != nil {
				return nil, fmt.Errorf("parse document: %w", err)
			}
		default:
			if err := d.dec.Skip(); err != nil {
				return nil, fmt.Errorf("parse document: %w", err)
			}
		}
	}

	if !rootSeen {
		return nil, errors.New("invalid document: no root element")
	}
	return doc, nil
}

// Malformed returns the entities skipped by the last Decode, one error per
// entity, in document order.
func (d *Decoder) Malformed() []error {
	return d.malformed
}

func parseNodeAttrs(attrs []xml.Attr) (NodeRecord, error) {
	var rec NodeRecord

	rec.ID = attrValue(attrs, "id")
	if rec.ID == "" {
		return rec, malformed("node", "", "id", errors.New("missing attribute"))
	}
	rec.Type = attrValue(attrs, "type")
	if rec.Type == "" {
		return rec, malformed("node", rec.ID, "type", errors.New("missing attribute"))
	}

	// Positions default to the origin when absent.
	var err error
	if rec.X, err = floatAttr(attrs, "x"); err != nil {
		return rec, malformed("node", rec.ID, "x", err)
	}
	if rec.Y, err = floatAttr(attrs, "y"); err != nil {
		return rec, malformed("node", rec.ID, "y", err)
	}

	if rec.InputCount, err = countAttr(attrs, aliasInputCount); err != nil {
		return rec, malformed("node", rec.ID, aliasInputCount[0], err)
	}
	if rec.OutputCount, err = countAttr(attrs, aliasOutputCount); err != nil {
		return rec, malformed("node", rec.ID, aliasOutputCount[0], err)
	}
	return rec, nil
}

func parseEdgeAttrs(attrs []xml.Attr) (EdgeRecord, error) {
	var rec EdgeRecord

	rec.ID = attrValue(attrs, "id")
	if rec.ID == "" {
		return rec, malformed("edge", "", "id", errors.New("missing attribute"))
	}

	rec.SourceNodeID = firstAttr(attrs, aliasSourceNode)
	if rec.SourceNodeID == "" {
		return rec, malformed("edge", rec.ID, aliasSourceNode[0], errors.New("missing attribute"))
	}
	rec.TargetNodeID = firstAttr(attrs, aliasTargetNode)
	if rec.TargetNodeID == "" {
		return rec, malformed("edge", rec.ID, aliasTargetNode[0], errors.New("missing attribute"))
	}

	var err error
	if rec.SourceSocketIndex, err = indexAttr(attrs, aliasSourceIndex); err != nil {
		return rec, malformed("edge", rec.ID, aliasSourceIndex[0], err)
	}
	if rec.TargetSocketIndex, err = indexAttr(attrs, aliasTargetIndex); err != nil {
		return rec, malformed("edge", rec.ID, aliasTargetIndex[0], err)
	}
	return rec, nil
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func firstAttr(attrs []xml.Attr, names []string) string {
	for _, name := range names {
		if v := attrValue(attrs, name); v != "" {
			return v
		}
	}
	return ""
}

func floatAttr(attrs []xml.Attr, name string) (float64, error) {
	v := attrValue(attrs, name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable number %q", v)
	}
	return f, nil
}

func countAttr(attrs []xml.Attr, names []string) (int, error) {
	v := firstAttr(attrs, names)
	if v == "" {
		return 0, errors.New("missing attribute")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("unparsable number %q", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	if n > MaxPortCount {
		return 0, fmt.Errorf("count %d exceeds %d", n, MaxPortCount)
	}
	return n, nil
}

func indexAttr(attrs []xml.Attr, names []string) (int, error) {
	v := firstAttr(attrs, names)
	if v == "" {
		return 0, errors.New("missing attribute")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("unparsable number %q", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative index %d", n)
	}
	return n, nil
}

// Wire shapes for the canonical writer.

type xmlNode struct {
	XMLName     xml.Name `xml:"node"`
	ID          string   `xml:"id,attr"`
	X           float64  `xml:"x,attr"`
	Y           float64  `xml:"y,attr"`
	Type        string   `xml:"type,attr"`
	InputCount  int      `xml:"inputCount,attr"`
	OutputCount int      `xml:"outputCount,attr"`
}

type xmlEdge struct {
	XMLName           xml.Name `xml:"edge"`
	ID                string   `xml:"id,attr"`
	SourceNodeID      string   `xml:"sourceNodeId,attr"`
	SourceSocketIndex int      `xml:"sourceSocketIndex,attr"`
	TargetNodeID      string   `xml:"targetNodeId,attr"`
	TargetSocketIndex int      `xml:"targetSocketIndex,attr"`
}

type xmlGraph struct {
	XMLName xml.Name  `xml:"graph"`
	Version string    `xml:"version,attr"`
	Nodes   []xmlNode `xml:"node"`
	Edges   []xmlEdge `xml:"edge"`
}

// Encode writes the canonical flat form: current attribute names only, no
// container wrappers, nodes before edges, document order preserved.
func Encode(w io.Writer, doc *Document) error {
	g := xmlGraph{
		Version: doc.Version,
		Nodes:   make([]xmlNode, len(doc.Nodes)),
		Edges:   make([]xmlEdge, len(doc.Edges)),
	}
	if g.Version == "" {
		g.Version = CurrentVersion
	}
	for i, n := range doc.Nodes {
		g.Nodes[i] = xmlNode{
			ID:          n.ID,
			X:           n.X,
			Y:           n.Y,
			Type:        n.Type,
			InputCount:  n.InputCount,
			OutputCount: n.OutputCount,
		}
	}
	for i, e := range doc.Edges {
		g.Edges[i] = xmlEdge{
			ID:                e.ID,
			SourceNodeID:      e.SourceNodeID,
			SourceSocketIndex: e.SourceSocketIndex,
			TargetNodeID:      e.TargetNodeID,
			TargetSocketIndex: e.TargetSocketIndex,
		}
	}

	data, err := xml.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
