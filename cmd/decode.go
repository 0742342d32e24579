// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/coordapi"
	"github.com/reactorfleet/scada-core/internal/proto/coorddata"
	"github.com/reactorfleet/scada-core/internal/proto/mgmt"
	"github.com/reactorfleet/scada-core/internal/proto/modbus"
	"github.com/reactorfleet/scada-core/internal/proto/rplc"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <capture-file>",
	Short: "Decode and browse a SCADA frame capture offline",
	Long: `Reads a capture file of length-prefixed UDP payloads (a 4-byte
big-endian length followed by that many bytes, repeated to EOF),
decodes each as a SCADA frame plus its protocol sub-packet, and opens
a Bubble Tea browser over the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

// decodedEntry is one successfully- or unsuccessfully-decoded capture
// record, rendered as one list.Item.
type decodedEntry struct {
	index   int
	summary string
	detail  string
	isError bool
}

func (e decodedEntry) Title() string { return e.summary }
func (e decodedEntry) Description() string {
	if e.isError {
		return "malformed: " + e.detail
	}
	return e.detail
}
func (e decodedEntry) FilterValue() string { return e.summary }

func runDecode(cmd *cobra.Command, args []string) error {
	entries, invalid, err := loadCapture(args[0])
	if err != nil {
		return err
	}

	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = e
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = fmt.Sprintf("scadactl decode: %s", args[0])

	m := decodeModel{list: l, total: len(entries), invalid: invalid}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// loadCapture reads every length-prefixed record from path and decodes
// it as a frame plus protocol sub-packet, returning one decodedEntry
// per record and a count of records that failed to decode.
func loadCapture(path string) ([]decodedEntry, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("decode: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []decodedEntry
	invalid := 0
	index := 0

	for {
		var length uint32
		if err := binary.Read(f, binary.BigEndian, &length); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("decode: read length prefix: %w", err)
		}

		buf := make([]byte, length)
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, 0, fmt.Errorf("decode: read %d-byte record: %w", length, err)
		}

		index++
		entry := decodeRecord(index, buf)
		if entry.isError {
			invalid++
		}
		entries = append(entries, entry)
	}

	return entries, invalid, nil
}

func decodeRecord(index int, raw []byte) decodedEntry {
	fr, ok := frame.Receive(frame.WireMessage{Message: raw})
	if !ok {
		return decodedEntry{index: index, summary: fmt.Sprintf("#%d UNDECODABLE", index), detail: "not a valid frame envelope", isError: true}
	}

	switch fr.Protocol() {
	case frame.RPLC:
		var p rplc.Packet
		if !p.Decode(fr) {
			break
		}
		return decodedEntry{index: index,
			summary: fmt.Sprintf("#%d seq=%d RPLC %s", index, fr.SeqNum(), p.Type),
			detail:  fmt.Sprintf("plc_id=%d body=%v", p.PlcID, p.Body)}
	case frame.ScadaMgmt:
		var p mgmt.Packet
		if !p.Decode(fr) {
			break
		}
		return decodedEntry{index: index,
			summary: fmt.Sprintf("#%d seq=%d SCADA_MGMT %s", index, fr.SeqNum(), p.Type),
			detail:  fmt.Sprintf("body=%v", p.Body)}
	case frame.CoordData:
		var p coorddata.Packet
		if !p.Decode(fr) {
			break
		}
		return decodedEntry{index: index,
			summary: fmt.Sprintf("#%d seq=%d COORD_DATA %s", index, fr.SeqNum(), p.Type),
			detail:  fmt.Sprintf("fields=%v", p.Fields)}
	case frame.CoordAPI:
		var p coordapi.Packet
		if !p.Decode(fr) {
			break
		}
		return decodedEntry{index: index,
			summary: fmt.Sprintf("#%d seq=%d COORD_API %s", index, fr.SeqNum(), p.Type),
			detail:  fmt.Sprintf("fields=%v", p.Fields)}
	case frame.ModbusTCP:
		var p modbus.Packet
		if !p.Decode(fr) {
			break
		}
		return decodedEntry{index: index,
			summary: fmt.Sprintf("#%d seq=%d MODBUS_TCP func=%d", index, fr.SeqNum(), p.FuncCode),
			detail:  fmt.Sprintf("unit=%d txn=%d data=%v", p.UnitID, p.TxnID, p.Data)}
	}

	return decodedEntry{index: index,
		summary: fmt.Sprintf("#%d seq=%d %s", index, fr.SeqNum(), fr.Protocol()),
		detail:  "envelope decoded, sub-packet rejected by its own Decode", isError: true}
}

// decodeModel is the Bubble Tea reducer driving the browser, shaped
// after the teacher's control_tui.go list-plus-stats-bar layout.
type decodeModel struct {
	list     list.Model
	total    int
	invalid  int
	width    int
	height   int
	quitting bool
}

func (m decodeModel) Init() tea.Cmd {
	return nil
}

func (m decodeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m decodeModel) View() string {
	if m.quitting {
		return ""
	}

	statsLabelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statsValueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		statsLabelStyle.Render("frames: "), statsValueStyle.Render(fmt.Sprintf("%d", m.total)), "  ",
		statsLabelStyle.Render("malformed: "), errorStyle.Render(fmt.Sprintf("%d", m.invalid)))

	return lipgloss.JoinVertical(lipgloss.Left, stats, m.list.View())
}
