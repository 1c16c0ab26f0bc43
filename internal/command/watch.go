// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/meta"
)

var watchExamples = [][2]string{
	{"runcache watch", "live view of the cache with TTL countdowns"},
	{"runcache watch --interval 1", "refresh every second"},
}

var (
	watchHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f6be00"))
	watchHelpStyle   = lipgloss.NewStyle().Faint(true)
	watchErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
)

func WatchCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "watch", watchExamples) {
		return nil
	}

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	interval := cmd.Int("interval")
	if interval < 1 {
		interval = 1
	}

	m := newWatchModel(rc, time.Duration(interval)*time.Second)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func WatchCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "watch",
		Usage:     "watch the cache live",
		UsageText: `runcache watch [options]`,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "refresh interval in seconds",
				Value:   2,
				Sources: cli.NewValueSourceChain(
					yaml.YAML("watch.interval", altsrc.StringSourcer(cfg.Source)),
					yaml.YAML("interval", altsrc.StringSourcer(cfg.Source)),
				),
			},
		}, NewCacheFlags("watch")...),
		Action: WatchCommandAction,
		Meta:   meta,
	}).Build()
}

type watchTickMsg time.Time

type watchRowsMsg struct {
	rows []*EntryRow
	err  error
}

// watchModel is the Bubble Tea model for the live cache view.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View.
type watchModel struct {
	rc       *cache.Cache
	interval time.Duration

	table  table.Model
	spin   spinner.Model
	rows   []*EntryRow
	err    error
	height int
}

func newWatchModel(rc *cache.Cache, interval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c8f0"))

	m := watchModel{
		rc:       rc,
		interval: interval,
		spin:     sp,
		height:   20,
	}
	m.table = m.buildTable()
	return m
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh(), m.tick())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.table = m.buildTable()
		return m, nil

	case watchTickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case watchRowsMsg:
		m.rows = msg.rows
		m.err = msg.err
		m.table = m.buildTable()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	header := watchHeaderStyle.Render("runcache "+m.rc.Store().Path()) + " " + m.spin.View()
	footer := watchHelpStyle.Render(fmt.Sprintf("%d entries, refreshing every %s, q to quit", len(m.rows), m.interval))
	if m.err != nil {
		footer = watchErrorStyle.Render(m.err.Error())
	}
	return header + "\n" + m.table.View() + "\n" + footer + "\n"
}

// refresh materializes the snapshot off the UI loop and reports back as a
// message. Every refresh walks the full read path, so expired entries drop
// out for every worker, not just this view.
func (m watchModel) refresh() tea.Cmd {
	rc := m.rc
	return func() tea.Msg {
		snap, err := rc.Materialize()
		if err != nil {
			return watchRowsMsg{err: err}
		}
		rows, err := entryRows(snap)
		return watchRowsMsg{rows: rows, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) buildTable() table.Model {
	columns := []table.Column{
		{Title: "Key", Width: 32},
		{Title: "Expires", Width: 26},
		{Title: "TTL", Width: 20},
		{Title: "Kind", Width: 8},
		{Title: "Size", Width: 10},
		{Title: "Value", Width: 24},
	}

	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = table.Row{r.Key, r.Expires, r.TTL, r.Kind, r.Size, r.Value}
	}

	height := m.height - 4
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(lipgloss.Color("#f6be00"))
	s.Selected = s.Selected.Foreground(lipgloss.Color("#00c8f0"))
	t.SetStyles(s)

	return t
}
