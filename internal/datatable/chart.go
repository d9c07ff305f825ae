package datatable

import "fmt"

// ShowChart opens the chart preview of a table. Any visible preview is
// hidden first, so at most one is shown at a time. Each table builds its
// widget once and reuses it.
func (c *Controller) ShowChart(tableID string) error {
	c.CloseChart()

	src := c.GetSource(tableID)
	if src == nil {
		c.logger.Info("show chart: table does not exist", "table_id", tableID)
		return fmt.Errorf("show chart %q: %w", tableID, ErrTableNotFound)
	}

	if src.modal == nil {
		src.modal = c.newChart(ChartOptions{
			TableID:     src.id,
			Source:      src.ChartSource(),
			TogglePause: c.playground.TogglePause,
			Stop:        c.playground.ToggleStop,
			IsIframe:    c.isIframe,
		})
	}

	src.ForceApply()
	src.modal.Show()
	c.modal = src.modal
	return nil
}

// CloseChart hides the active chart preview if it is visible.
func (c *Controller) CloseChart() {
	if c.modal != nil && c.modal.IsShown() {
		c.modal.Hide()
	}
}

// ActiveChart returns the chart preview last opened by ShowChart, or nil.
func (c *Controller) ActiveChart() ChartWidget {
	return c.modal
}

type nopChart struct {
	shown bool
}

func (n *nopChart) Show()              { n.shown = true }
func (n *nopChart) Hide()              { n.shown = false }
func (n *nopChart) IsShown() bool      { return n.shown }
func (n *nopChart) Update(ChartSource) {}
