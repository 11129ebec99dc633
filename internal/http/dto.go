package http

import (
	"slices"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

type memberDTO struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type rehearsalSummaryDTO struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatorID string         `json:"creator_id"`
	StartDate scheduler.Date `json:"start_date"`
	EndDate   scheduler.Date `json:"end_date"`
	Finalized int            `json:"finalized_count"`
}

type rehearsalDTO struct {
	ID           string                         `json:"id"`
	Title        string                         `json:"title"`
	CircleCode   string                         `json:"circle_code"`
	Creator      memberDTO                      `json:"creator"`
	StartDate    scheduler.Date                 `json:"start_date"`
	EndDate      scheduler.Date                 `json:"end_date"`
	Participants []memberDTO                    `json:"participants"`
	Availability map[string][]scheduler.SlotKey `json:"availability"`
	Finalized    []finalizedEntryDTO            `json:"finalized"`
}

type finalizedEntryDTO struct {
	Date         scheduler.Date     `json:"date"`
	Periods      []scheduler.Period `json:"periods"`
	Room         string             `json:"room"`
	Equipment    []string           `json:"equipment"`
	Participants []memberDTO        `json:"participants"`
	Warnings     []string           `json:"warnings"`
}

type gridDTO struct {
	RehearsalID string             `json:"rehearsal_id"`
	Periods     []scheduler.Period `json:"periods"`
	Rows        []gridRowDTO       `json:"rows"`
}

type gridRowDTO struct {
	Date  scheduler.Date `json:"date"`
	Label string         `json:"label"`
	Cells []gridCellDTO  `json:"cells"`
}

type gridCellDTO struct {
	Key          scheduler.SlotKey `json:"key"`
	Count        int               `json:"count"`
	Participants []string          `json:"participants"`
	Mine         bool              `json:"mine"`
	Confirmed    bool              `json:"confirmed"`
}

func member(id string, names map[string]string) memberDTO {
	name := names[id]
	if name == "" {
		name = id
	}
	return memberDTO{ID: id, Nickname: name}
}

func members(ids []string, names map[string]string) []memberDTO {
	out := make([]memberDTO, 0, len(ids))
	for _, id := range ids {
		out = append(out, member(id, names))
	}
	return out
}

func toRehearsalSummaryDTO(s scheduler.Session) rehearsalSummaryDTO {
	return rehearsalSummaryDTO{
		ID:        s.ID,
		Title:     s.Title,
		CreatorID: s.CreatorID,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Finalized: len(s.Finalized),
	}
}

func toRehearsalDTO(s scheduler.Session, names map[string]string) rehearsalDTO {
	availability := make(map[string][]scheduler.SlotKey, len(s.Availability))
	for id, keys := range s.Availability {
		availability[id] = nonNilKeys(keys)
	}
	finalized := make([]finalizedEntryDTO, 0, len(s.Finalized))
	for _, entry := range s.Finalized {
		finalized = append(finalized, toFinalizedEntryDTO(entry, names))
	}
	return rehearsalDTO{
		ID:           s.ID,
		Title:        s.Title,
		CircleCode:   s.GroupCode,
		Creator:      member(s.CreatorID, names),
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		Participants: members(s.Participants, names),
		Availability: availability,
		Finalized:    finalized,
	}
}

func toFinalizedEntryDTO(e scheduler.FinalizedEntry, names map[string]string) finalizedEntryDTO {
	equipment := e.Equipment
	if equipment == nil {
		equipment = []string{}
	}
	return finalizedEntryDTO{
		Date:         e.Date,
		Periods:      slices.Clone(e.Periods),
		Room:         e.Room,
		Equipment:    slices.Clone(equipment),
		Participants: members(e.Participants, names),
		Warnings:     warningMessages(e.Warnings),
	}
}

func warningMessages(warnings []scheduler.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Message)
	}
	return out
}

func toGridDTO(g application.Grid) gridDTO {
	rows := make([]gridRowDTO, 0, len(g.Rows))
	for _, row := range g.Rows {
		cells := make([]gridCellDTO, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, gridCellDTO{
				Key:          c.Key,
				Count:        c.Count,
				Participants: c.Participants,
				Mine:         c.Mine,
				Confirmed:    c.Confirmed,
			})
		}
		rows = append(rows, gridRowDTO{Date: row.Date, Label: row.Label, Cells: cells})
	}
	return gridDTO{RehearsalID: g.SessionID, Periods: g.Periods, Rows: rows}
}

func nonNilKeys(keys []scheduler.SlotKey) []scheduler.SlotKey {
	if keys == nil {
		return []scheduler.SlotKey{}
	}
	return keys
}
