package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/streetcats/report-service/internal/api/dto"
	"github.com/streetcats/report-service/internal/client"
	"github.com/streetcats/report-service/internal/domain"
)

const noAssignee = "-"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printSession(w io.Writer, s client.Session) error {
	name := strings.TrimSpace(s.User.FirstName + " " + s.User.LastName)
	if name == "" {
		name = s.User.Email
	}
	fmt.Fprintf(w, "signed in as %s (%s)\n", name, s.User.ID)
	fmt.Fprintf(w, "export CATCTL_TOKEN=%s\n", s.Token)
	return nil
}

func assignee(r dto.Report) string {
	if name := r.AssigneeName(); name != "" {
		return name
	}
	return noAssignee
}

func printReports(w io.Writer, reports []dto.Report) error {
	if len(reports) == 0 {
		fmt.Fprintln(w, "no reports")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tREPORTER\tASSIGNEE\tLOCATION\tCREATED\tDESCRIPTION")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Type, r.Status, r.ReporterName(), assignee(r),
			formatLocation(r.Location), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Description)
	}
	return tw.Flush()
}

func printReport(w io.Writer, r dto.Report) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%s\n", r.ID)
	fmt.Fprintf(tw, "type\t%s\n", r.Type)
	fmt.Fprintf(tw, "status\t%s\n", r.Status)
	fmt.Fprintf(tw, "reporter\t%s\n", r.ReporterName())
	fmt.Fprintf(tw, "assignee\t%s\n", assignee(r))
	fmt.Fprintf(tw, "location\t%s\n", formatLocation(r.Location))
	fmt.Fprintf(tw, "description\t%s\n", r.Description)
	for _, url := range r.Media {
		fmt.Fprintf(tw, "media\t%s\n", url)
	}
	return tw.Flush()
}

func printCounts(w io.Writer, rows [][2]any) error {
	tw := newTable(w)
	for _, row := range rows {
		fmt.Fprintf(tw, "%v\t%v\n", row[0], row[1])
	}
	return tw.Flush()
}

func printView(w io.Writer, view client.View) error {
	fmt.Fprintf(w, "center: %.5f, %.5f\n\n", view.Center.Lat, view.Center.Lng)

	tw := newTable(w)
	fmt.Fprintln(tw, "LEGEND\tCOUNT")
	for _, t := range domain.ReportTypes {
		fmt.Fprintf(tw, "%s\t%d\n", t, view.Legend.Types[t])
	}
	for _, s := range domain.ReportStatuses {
		fmt.Fprintf(tw, "%s\t%d\n", s, view.Legend.Statuses[s])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return printReports(w, view.Reports)
}

func formatLocation(l dto.Location) string {
	loc := fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lng)
	if l.Address != "" {
		loc += " " + l.Address
	}
	return loc
}
