package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/voralis/formpilot/fields"
)

// DefaultSelectors maps each tracked field to its CSS selector on the
// Microsoft account signup form.
func DefaultSelectors() map[fields.ID]string {
	return map[fields.ID]string{
		fields.FirstName:  "#FirstName",
		fields.LastName:   "#LastName",
		fields.Email:      "#MemberName",
		fields.Password:   "#PasswordInput",
		fields.BirthYear:  "#BirthYear",
		fields.BirthMonth: "#BirthMonth",
		fields.BirthDay:   "#BirthDay",
		fields.Country:    "#Country",
	}
}

// FormPage drives a live signup form in a Chrome tab. It implements
// fields.Accessor, so formguard and regflow work against it unchanged.
type FormPage struct {
	page      *rod.Page
	selectors map[fields.ID]string
	timeout   time.Duration
}

// OpenForm opens a stealth tab on the signup page and waits for it to load.
// A nil selectors map uses DefaultSelectors.
func OpenForm(ctx context.Context, mgr *Manager, pageURL string, selectors map[fields.ID]string) (*FormPage, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	if selectors == nil {
		selectors = DefaultSelectors()
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &FormPage{
		page:      page,
		selectors: selectors,
		timeout:   mgr.cfg.NavTimeout,
	}, nil
}

// Page exposes the underlying Rod page for callers that need direct control
// (form submission, navigation checks).
func (f *FormPage) Page() *rod.Page {
	return f.page
}

// Close closes the tab.
func (f *FormPage) Close() error {
	if f.page != nil {
		return f.page.Close()
	}
	return nil
}

func (f *FormPage) selector(id fields.ID) (string, error) {
	sel, ok := f.selectors[id]
	if !ok {
		return "", &fields.ErrUnknownField{ID: id}
	}
	return sel, nil
}

func (f *FormPage) eval(js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	return f.page.Context(ctx).Eval(js, args...)
}

// Get returns the element's current value, or an error when the element is
// absent from the DOM.
func (f *FormPage) Get(id fields.ID) (string, error) {
	sel, err := f.selector(id)
	if err != nil {
		return "", err
	}
	res, err := f.eval(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("missing element: " + sel);
		return el.value ?? "";
	}`, sel)
	if err != nil {
		return "", fmt.Errorf("browser: get %s: %w", id, err)
	}
	return res.Value.Str(), nil
}

// Set writes the value without firing events. Dispatch fires them.
func (f *FormPage) Set(id fields.ID, value string) error {
	sel, err := f.selector(id)
	if err != nil {
		return err
	}
	_, err = f.eval(`(sel, val) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("missing element: " + sel);
		el.value = val;
	}`, sel, value)
	if err != nil {
		return fmt.Errorf("browser: set %s: %w", id, err)
	}
	return nil
}

// Dispatch fires the input and change events so the page's own handlers
// (dependent selects, validators) re-run.
func (f *FormPage) Dispatch(id fields.ID) error {
	sel, err := f.selector(id)
	if err != nil {
		return err
	}
	_, err = f.eval(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("missing element: " + sel);
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
	}`, sel)
	if err != nil {
		return fmt.Errorf("browser: dispatch %s: %w", id, err)
	}
	return nil
}

// Choices reads a select element's option values. For non-select elements it
// returns nil, nil.
func (f *FormPage) Choices(id fields.ID) ([]string, error) {
	sel, err := f.selector(id)
	if err != nil {
		return nil, err
	}
	res, err := f.eval(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("missing element: " + sel);
		if (el.tagName !== "SELECT") return null;
		return Array.from(el.options).map(o => o.value);
	}`, sel)
	if err != nil {
		return nil, fmt.Errorf("browser: choices %s: %w", id, err)
	}
	if res.Value.Nil() {
		return nil, nil
	}
	var out []string
	for _, v := range res.Value.Arr() {
		out = append(out, v.Str())
	}
	return out, nil
}

// SetChoices rebuilds a select element's option list. The browser clears the
// selection itself when the current value is no longer present.
func (f *FormPage) SetChoices(id fields.ID, choices []string) error {
	sel, err := f.selector(id)
	if err != nil {
		return err
	}
	_, err = f.eval(`(sel, opts) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("missing element: " + sel);
		if (el.tagName !== "SELECT") throw new Error("not a select: " + sel);
		const current = el.value;
		el.innerHTML = "";
		for (const v of opts) {
			const o = document.createElement("option");
			o.value = v;
			o.textContent = v;
			el.appendChild(o);
		}
		el.value = opts.includes(current) ? current : "";
	}`, sel, choices)
	if err != nil {
		return fmt.Errorf("browser: set choices %s: %w", id, err)
	}
	return nil
}
