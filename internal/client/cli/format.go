package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
)

var errNotSignedIn = errors.New("not signed in, use 'login'")

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func describeErr(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNoSession):
		return errNotSignedIn.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) < 1 {
		return 0, usageError(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func badgeLabel(b record.Badge) string {
	switch b.Status {
	case record.StatusExpired:
		return "EXPIRED"
	case record.StatusWarning:
		return fmt.Sprintf("%s days", b.Text)
	default:
		return "active"
	}
}

func formatAmount(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 2)
}

// formatDevices renders counts as "LG x1, Android x2" in catalog order.
func formatDevices(entries []string) string {
	counts := record.DecodeDevices(entries)
	labels := record.DeviceLabels(entries)
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s x%d", l, counts[l]))
	}
	return strings.Join(parts, ", ")
}

// parseDeviceCounts reads "LG=1, Android=2". Labels are matched against
// known case-insensitively; unknown labels are rejected.
func parseDeviceCounts(s string, known []string) (record.DeviceCounts, error) {
	counts := record.DeviceCounts{}
	s = strings.TrimSpace(s)
	if s == "" {
		return counts, nil
	}
	for _, item := range strings.Split(s, ",") {
		label, num, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			return nil, fmt.Errorf("device %q: expected label=count", item)
		}
		label = canonicalLabel(strings.TrimSpace(label), known)
		if label == "" {
			return nil, fmt.Errorf("unknown device %q", strings.TrimSpace(item))
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("device %s: invalid count %q", label, num)
		}
		counts[label] = n
	}
	return counts, nil
}

func canonicalLabel(label string, known []string) string {
	for _, k := range known {
		if strings.EqualFold(k, label) {
			return k
		}
	}
	return ""
}

// encodeDeviceInput is the inverse of parseDeviceCounts, used as a prompt default.
func encodeDeviceInput(counts record.DeviceCounts) string {
	labels := make([]string, 0, len(counts))
	for l, n := range counts {
		if n > 0 {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", l, counts[l]))
	}
	return strings.Join(parts, ", ")
}

func printServices(w io.Writer, list []models.Service) {
	table := uitable.New()
	table.MaxColWidth = 30
	table.AddRow("ID", "NAME", "USERNAME", "PHONE", "EXPIRES", "STATUS", "DEVICES", "AMOUNT")
	for _, s := range list {
		table.AddRow(s.ID, s.Name, s.Username, record.FormatPhone(deref(s.Phone)),
			s.ExpirationDate.String(), badgeLabel(s.Badge), s.DeviceCounts.Total(), formatAmount(s.Amount))
	}
	fmt.Fprintln(w, table)
}

func printService(w io.Writer, s models.Service) {
	table := uitable.New()
	table.Wrap = true
	table.MaxColWidth = 60
	table.AddRow("ID:", s.ID)
	table.AddRow("Name:", s.Name)
	table.AddRow("Username:", s.Username)
	table.AddRow("Phone:", record.FormatPhone(deref(s.Phone)))
	table.AddRow("Purchased:", s.PurchaseDate.String())
	table.AddRow("Expires:", fmt.Sprintf("%s (%s)", s.ExpirationDate.String(), badgeLabel(s.Badge)))
	table.AddRow("Server:", deref(s.Server))
	table.AddRow("Payment:", deref(s.PaymentMethod))
	table.AddRow("Devices:", formatDevices(s.Device))
	table.AddRow("Amount:", formatAmount(s.Amount))
	table.AddRow("Note:", deref(s.Note))
	table.AddRow("Owner:", s.OwnerID)
	if !s.UpdatedAt.IsZero() {
		table.AddRow("Updated:", humanize.Time(s.UpdatedAt))
	}
	fmt.Fprintln(w, table)
}

func printImages(w io.Writer, list []models.Image) {
	table := uitable.New()
	table.AddRow("ID", "ADDED", "URL")
	for _, img := range list {
		table.AddRow(img.ID, humanize.Time(img.CreatedAt), img.ImageURL)
	}
	fmt.Fprintln(w, table)
}

func printProfiles(w io.Writer, list []models.Profile) {
	table := uitable.New()
	table.AddRow("ID", "USERNAME", "ROLE")
	for _, p := range list {
		table.AddRow(p.ID, p.Username, p.Role)
	}
	fmt.Fprintln(w, table)
}

func printImportReport(w io.Writer, rep *models.ImportReport) {
	fmt.Fprintf(w, "Imported %d record(s)\n", rep.Inserted)
	if len(rep.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "%d row(s) rejected:\n", len(rep.Errors))
	table := uitable.New()
	table.AddRow("ROW", "REASON")
	for _, e := range rep.Errors {
		table.AddRow(e.Row, e.Reason)
	}
	fmt.Fprintln(w, table)
}
