package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ecoguardian-in/core/badges"
	impact "github.com/ecoguardian-in/core/outcome-impact"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
)

type pointRow struct {
	Activity    scoring.ActivityType `json:"activity_type"`
	Points      int                  `json:"points"`
	Description string               `json:"description"`
}

type rankRow struct {
	ranks.Requirement
	Description string `json:"description"`
}

type weightRow struct {
	Outcome     impact.OutcomeType `json:"outcome_type"`
	Weight      float64            `json:"weight"`
	Description string             `json:"description"`
}

type tables struct {
	Points   []pointRow     `json:"points"`
	Ranks    []rankRow      `json:"ranks"`
	Badges   []badges.Badge `json:"badges"`
	Outcomes []weightRow    `json:"outcomes"`
}

func buildTables() tables {
	var t tables
	desc := scoring.PointsDescription()
	for _, a := range scoring.ActivityTypes() {
		t.Points = append(t.Points, pointRow{Activity: a, Points: scoring.MustScore(a), Description: desc[a]})
	}
	rankDesc := ranks.RankDescription()
	for _, r := range ranks.Ladder() {
		t.Ranks = append(t.Ranks, rankRow{Requirement: r, Description: rankDesc[r.Rank]})
	}
	t.Badges = badges.Catalog()
	outcomeDesc := impact.OutcomeDescription()
	for o, w := range impact.Weights {
		t.Outcomes = append(t.Outcomes, weightRow{Outcome: o, Weight: w, Description: outcomeDesc[o]})
	}
	sort.Slice(t.Outcomes, func(i, j int) bool {
		if t.Outcomes[i].Weight != t.Outcomes[j].Weight {
			return t.Outcomes[i].Weight < t.Outcomes[j].Weight
		}
		return t.Outcomes[i].Outcome < t.Outcomes[j].Outcome
	})
	return t
}

func (t tables) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "\nACTIVITY\tPOINTS\tDESCRIPTION")
	for _, p := range t.Points {
		fmt.Fprintf(w, "%s\t%d\t%s\n", p.Activity, p.Points, p.Description)
	}
	fmt.Fprintln(w, "\nRANK\tVERIFIED REPORTS\tPOINTS\tDESCRIPTION")
	for _, r := range t.Ranks {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.Rank, r.MinVerifiedReports, r.MinPoints, r.Description)
	}
	fmt.Fprintln(w, "\nBADGE\tPOINTS\tREQUIRES")
	for _, b := range t.Badges {
		fmt.Fprintf(w, "%s\t%d\t%s >= %d\n", b.ID, b.Points, b.Field, b.Threshold)
	}
	fmt.Fprintln(w, "\nOUTCOME\tWEIGHT\tDESCRIPTION")
	for _, o := range t.Outcomes {
		fmt.Fprintf(w, "%s\t%.1f\t%s\n", o.Outcome, o.Weight, o.Description)
	}
	w.Flush()
	return sb.String()
}
