package browser

import (
	"strings"
	"time"

	"github.com/go-rod/rod"

	"hotel-price-watch/internal/pricing"
)

// Split price sub-part selectors within a rate control.
const (
	intPartSelector = ".rate-int"
	decPartSelector = ".rate-dec"

	partLookupTimeout = 2 * time.Second
)

// rodCandidate adapts a rod element to the pricing.Candidate contract. All
// accessors translate driver failures into plain errors for the resolver to
// swallow.
type rodCandidate struct {
	el *rod.Element
}

func newRodCandidate(el *rod.Element) *rodCandidate {
	return &rodCandidate{el: el}
}

// PriceParts locates the integer and pence spans inside the control.
func (c *rodCandidate) PriceParts() (string, string, error) {
	intEl, err := c.el.Timeout(partLookupTimeout).Element(intPartSelector)
	if err != nil {
		return "", "", err
	}
	decEl, err := c.el.Timeout(partLookupTimeout).Element(decPartSelector)
	if err != nil {
		return "", "", err
	}

	intPart, err := intEl.Text()
	if err != nil {
		return "", "", err
	}
	decPart, err := decEl.Text()
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(intPart), strings.TrimSpace(decPart), nil
}

// Text returns the control's visible rendered text.
func (c *rodCandidate) Text() (string, error) {
	return c.el.Text()
}

// RawText reads the underlying textContent, which survives display:none and
// similar styling that hides text from the rendered view.
func (c *rodCandidate) RawText() (string, error) {
	obj, err := c.el.Eval(`() => this.textContent || ""`)
	if err != nil {
		return "", err
	}
	return obj.Value.Str(), nil
}

var _ pricing.Candidate = (*rodCandidate)(nil)
