package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
)

func (a *App) List(ctx context.Context, args []string) error {
	view := ""
	if len(args) > 0 {
		view = args[0]
	}
	list, _, err := a.records.Refresh(ctx, view)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}
	printServices(a.out, list)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args, "show <id>")
	if err != nil {
		return err
	}
	rec, err := a.records.Show(ctx, id)
	if err != nil {
		return err
	}
	printService(a.out, *rec)
	return nil
}

// Add walks the user through a new record.
func (a *App) Add(ctx context.Context) error {
	opts, err := a.records.Options(ctx)
	if err != nil {
		return err
	}

	var in models.ServiceInput
	if in.Name, err = a.required("Client name"); err != nil {
		return err
	}
	if in.Username, err = a.required("Service username"); err != nil {
		return err
	}
	today := record.DateOf(time.Now())
	if in.PurchaseDate, err = a.date("Purchase date", today.String()); err != nil {
		return err
	}
	if in.ExpirationDate, err = a.date("Expiration date", ""); err != nil {
		return err
	}
	if in.Phone, err = a.optional("Phone", ""); err != nil {
		return err
	}
	if in.Server, err = a.choice("Server", opts.Servers, ""); err != nil {
		return err
	}
	if in.PaymentMethod, err = a.choice("Payment method", opts.PaymentMethods, ""); err != nil {
		return err
	}
	if in.DeviceCounts, err = a.devices(opts.Devices, ""); err != nil {
		return err
	}
	if in.Amount, err = a.amount(""); err != nil {
		return err
	}
	note, err := GetMultiline(a.reader, "Note", a.out)
	if err != nil {
		return err
	}
	if note != "" {
		in.Note = &note
	}

	rec, err := a.records.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created record %d\n", rec.ID)
	return nil
}

// Edit shows every field with its current value; an empty answer keeps it.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := parseID(args, "edit <id>")
	if err != nil {
		return err
	}
	cur, err := a.records.Show(ctx, id)
	if err != nil {
		return err
	}
	opts, err := a.records.Options(ctx)
	if err != nil {
		return err
	}

	var p models.ServicePatch
	if s, err := GetWithDefault(a.reader, "Client name", cur.Name, a.out); err != nil {
		return err
	} else if s != cur.Name {
		p.Name = &s
	}
	if s, err := GetWithDefault(a.reader, "Service username", cur.Username, a.out); err != nil {
		return err
	} else if s != cur.Username {
		p.Username = &s
	}
	if d, err := a.date("Purchase date", cur.PurchaseDate.String()); err != nil {
		return err
	} else if !d.Equal(cur.PurchaseDate.Time) {
		p.PurchaseDate = &d
	}
	if d, err := a.date("Expiration date", cur.ExpirationDate.String()); err != nil {
		return err
	} else if !d.Equal(cur.ExpirationDate.Time) {
		p.ExpirationDate = &d
	}
	if s, err := a.optional("Phone", deref(cur.Phone)); err != nil {
		return err
	} else if deref(s) != deref(cur.Phone) {
		p.Phone = emptyIfNil(s)
	}
	if s, err := a.choice("Server", opts.Servers, deref(cur.Server)); err != nil {
		return err
	} else if deref(s) != deref(cur.Server) {
		p.Server = emptyIfNil(s)
	}
	if s, err := a.choice("Payment method", opts.PaymentMethods, deref(cur.PaymentMethod)); err != nil {
		return err
	} else if deref(s) != deref(cur.PaymentMethod) {
		p.PaymentMethod = emptyIfNil(s)
	}
	curDevices := encodeDeviceInput(cur.DeviceCounts)
	if c, err := a.devices(opts.Devices, curDevices); err != nil {
		return err
	} else if encodeDeviceInput(c) != curDevices {
		// every known label is sent, zeros included
		p.DeviceCounts = record.InitialDevices(opts.Devices)
		for label, n := range c {
			p.DeviceCounts[label] = n
		}
	}
	curAmount := strconv.FormatFloat(cur.Amount, 'f', -1, 64)
	if v, err := a.amount(curAmount); err != nil {
		return err
	} else if v != cur.Amount {
		p.Amount = &v
	}
	if a.state.IsAdmin() {
		if s, err := GetWithDefault(a.reader, "Owner id", cur.OwnerID, a.out); err != nil {
			return err
		} else if s != cur.OwnerID {
			p.OwnerID = &s
		}
	}

	rec, err := a.records.Update(ctx, id, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated record %d\n", rec.ID)
	return nil
}

func (a *App) Note(ctx context.Context, args []string) error {
	id, err := parseID(args, "note <id>")
	if err != nil {
		return err
	}
	note, err := GetMultiline(a.reader, "New note (empty clears it)", a.out)
	if err != nil {
		return err
	}
	if err := a.records.SetNote(ctx, id, note); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Note saved")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := parseID(args, "delete <id>")
	if err != nil {
		return err
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete record %d?", id), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.records.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted record %d\n", id)
	return nil
}

func (a *App) required(prompt string) (string, error) {
	for {
		s, err := GetSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		fmt.Fprintln(a.out, "value is required")
	}
}

// optional returns nil for an empty answer; "-" clears a current value.
func (a *App) optional(prompt, def string) (*string, error) {
	s, err := GetWithDefault(a.reader, prompt, def, a.out)
	if err != nil {
		return nil, err
	}
	if s == "" || s == "-" {
		return nil, nil
	}
	return &s, nil
}

func (a *App) date(prompt, def string) (record.Date, error) {
	for {
		s, err := GetWithDefault(a.reader, prompt, def, a.out)
		if err != nil {
			return record.Date{}, err
		}
		d, err := record.ParseDate(s)
		if err == nil {
			return d, nil
		}
		fmt.Fprintln(a.out, err)
	}
}

func (a *App) choice(prompt string, options []string, def string) (*string, error) {
	return a.optional(fmt.Sprintf("%s (%s)", prompt, strings.Join(options, ", ")), def)
}

func (a *App) devices(known []string, def string) (record.DeviceCounts, error) {
	prompt := fmt.Sprintf("Devices as label=count, comma separated (%s)", strings.Join(known, ", "))
	for {
		s, err := GetWithDefault(a.reader, prompt, def, a.out)
		if err != nil {
			return nil, err
		}
		if s == "-" {
			return record.DeviceCounts{}, nil
		}
		c, err := parseDeviceCounts(s, known)
		if err == nil {
			return c, nil
		}
		fmt.Fprintln(a.out, err)
	}
}

func (a *App) amount(def string) (float64, error) {
	for {
		s, err := GetWithDefault(a.reader, "Amount", def, a.out)
		if err != nil {
			return 0, err
		}
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
		if err == nil && v >= 0 {
			return v, nil
		}
		fmt.Fprintf(a.out, "invalid amount %q\n", s)
	}
}

func emptyIfNil(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return s
}
