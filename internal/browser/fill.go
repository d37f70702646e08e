package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/vituali/sgp_bridge/internal/sgp"
)

// jsSetField assigns a form field and fires a change event so SGP's own
// scripts react, the same way a manual edit would.
const jsSetField = `(function(selector, value, isCheckbox) {
	const el = document.querySelector(selector);
	if (!el) { return false; }
	if (isCheckbox) { el.checked = value; } else { el.value = value; }
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})`

// FillOccurrenceText writes the OS text into the occurrence content field of
// an already-open occurrence-add tab. Used by the quick create flow, where
// the operator reviews the rest of the form by hand.
func (n *Navigator) FillOccurrenceText(ctx context.Context, targetID, osText string) error {
	tabCtx, cancel := n.tabContext(target.ID(targetID))
	defer cancel()

	if err := waitReady(tabCtx); err != nil {
		return sgp.NewError(sgp.CodeTabUnavailable, "occurrence page not ready", err)
	}
	return n.setFields(tabCtx, []fieldAssignment{
		{selector: "#id_conteudo", value: strings.ToUpper(osText)},
	})
}

// FillOccurrenceForm fills the whole occurrence form from a visual-fill
// submission. The contract select is set first and given time to load its
// dependent fields before the rest is written, mirroring the page's own
// cascade.
func (n *Navigator) FillOccurrenceForm(ctx context.Context, targetID string, sub sgp.OccurrenceSubmission, attendantID string) error {
	tabCtx, cancel := n.tabContext(target.ID(targetID))
	defer cancel()

	if err := waitReady(tabCtx); err != nil {
		return sgp.NewError(sgp.CodeTabUnavailable, "occurrence page not ready", err)
	}

	if err := n.setFields(tabCtx, []fieldAssignment{
		{selector: "#id_clientecontrato", value: sub.SelectedContract},
	}); err != nil {
		return err
	}

	select {
	case <-time.After(time.Second):
	case <-tabCtx.Done():
		return sgp.NewError(sgp.CodeTabUnavailable, "occurrence fill interrupted", tabCtx.Err())
	}

	return n.setFields(tabCtx, []fieldAssignment{
		{selector: "#id_tipo", value: sub.OccurrenceType},
		{selector: "#id_conteudo", value: strings.ToUpper(sub.OsText)},
		{selector: "#id_responsavel", value: attendantID},
		{selector: "#id_setor", value: "2"},
		{selector: "#id_metodo", value: "3"},
		{selector: "#id_status", value: sub.OccurrenceStatus},
		{selector: "#id_data_agendamento", value: time.Now().Format("02/01/2006 15:04")},
		{selector: "#id_os", value: sub.ShouldCreateOS, checkbox: true},
	})
}

type fieldAssignment struct {
	selector string
	value    any
	checkbox bool
}

func (n *Navigator) setFields(tabCtx context.Context, fields []fieldAssignment) error {
	for _, field := range fields {
		selectorJSON, _ := json.Marshal(field.selector)
		valueJSON, err := json.Marshal(field.value)
		if err != nil {
			return sgp.NewError(sgp.CodeValidation, "unencodable form value for "+field.selector, err)
		}

		js := fmt.Sprintf("%s(%s, %s, %t)", jsSetField, selectorJSON, valueJSON, field.checkbox)
		var found bool
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(js, &found)); err != nil {
			return sgp.NewError(sgp.CodeTabUnavailable, "form field eval failed for "+field.selector, err)
		}
		if !found {
			return sgp.NewError(sgp.CodeScrapeFailure, "form field not found: "+field.selector, nil)
		}
	}
	return nil
}

func waitReady(tabCtx context.Context) error {
	return chromedp.Run(tabCtx,
		chromedp.Poll("document.readyState === 'complete'", nil, chromedp.WithPollingInterval(100*time.Millisecond)),
	)
}
