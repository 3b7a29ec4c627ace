// Package siri parses SIRI request envelopes and rewrites the requestor
// reference credential before the request is forwarded upstream.
package siri

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

const requestorRefTag = "RequestorRef"

var (
	ErrMalformed     = errors.New("siri: malformed envelope")
	ErrNotAuthorized = errors.New("siri: requestor reference not authorized")
)

// Envelope is one parsed SIRI request document. It lives for the duration
// of a single request.
type Envelope struct {
	doc *etree.Document
}

func Parse(body []byte) (*Envelope, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, ErrMalformed
	}
	if doc.Root() == nil {
		return nil, ErrMalformed
	}
	return &Envelope{doc: doc}, nil
}

func (e *Envelope) requestorRefElements() []*etree.Element {
	var refs []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == requestorRefTag {
			refs = append(refs, el)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(e.doc.Root())
	return refs
}

// RequestorRefs returns every RequestorRef value in document order,
// wherever the element appears in the tree.
func (e *Envelope) RequestorRefs() []string {
	elements := e.requestorRefElements()
	values := make([]string, 0, len(elements))
	for _, el := range elements {
		values = append(values, strings.TrimSpace(el.Text()))
	}
	return values
}

// Authorize enforces the singleton credential rule: exactly one
// RequestorRef equal to publicRef must be present. Zero matches and two
// or more matches (even identical ones) both fail; duplicated credentials
// are treated as spoofing, not as redundancy.
func (e *Envelope) Authorize(publicRef string) error {
	matches := 0
	for _, value := range e.RequestorRefs() {
		if value == publicRef {
			matches++
		}
	}
	if matches != 1 {
		return ErrNotAuthorized
	}
	return nil
}

// Rewrite replaces every RequestorRef equal to publicRef with
// upstreamRef.
func (e *Envelope) Rewrite(publicRef, upstreamRef string) {
	for _, el := range e.requestorRefElements() {
		if strings.TrimSpace(el.Text()) == publicRef {
			el.SetText(upstreamRef)
		}
	}
}

// Encode serializes the envelope with an XML 1.0 declaration.
func (e *Envelope) Encode() ([]byte, error) {
	if !hasDeclaration(e.doc) {
		decl := &etree.ProcInst{Target: "xml", Inst: `version="1.0" encoding="UTF-8"`}
		e.doc.InsertChildAt(0, decl)
	}
	return e.doc.WriteToBytes()
}

func hasDeclaration(doc *etree.Document) bool {
	for _, token := range doc.Child {
		if pi, ok := token.(*etree.ProcInst); ok && pi.Target == "xml" {
			return true
		}
	}
	return false
}
