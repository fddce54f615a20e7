package voucher

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/woodlands-thekkady/booking-flow/internal/domain"
)

// Voucher is the downloadable summary a guest keeps after a confirmed booking.
// Everything on it is already known client-side; no backend call is involved.
type Voucher struct {
	Guest    domain.GuestInfo
	Stay     domain.StayRequest
	Category domain.RoomCategory
	Result   domain.BookingResult
	IssuedAt time.Time
}

const dateLayout = "02 Jan 2006"

var tmpl = template.Must(template.New("voucher").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format(dateLayout) },
	"join": func(ids []string) string { return strings.Join(ids, ", ") },
}).Parse(`WOODLANDS THEKKADY - BOOKING VOUCHER
====================================

Guest:    {{.Guest.Name}}
Email:    {{.Guest.Email}}
Phone:    {{.Guest.Phone}}

Room:     {{.Category.DisplayName}}
Check-in: {{date .Stay.CheckIn}}
Check-out:{{printf " %s" (date .Stay.CheckOut)}}
Nights:   {{.Stay.Nights}}
{{if eq .Category.PricingMode "per_head"}}Guests:   {{.Stay.GuestCount}}
{{else}}Rooms:    {{.Stay.UnitCount}}
{{end}}
Booking reference{{if gt (len .Result.BookingIDs) 1}}s{{end}}: {{join .Result.BookingIDs}}
Amount paid: INR {{.Result.TotalAmount}}

Issued {{date .IssuedAt}}. Please present this voucher at reception.
`))

// Render produces the plain-text voucher document.
func Render(v Voucher) ([]byte, error) {
	if len(v.Result.BookingIDs) == 0 {
		return nil, errors.New("voucher requires a confirmed booking")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return nil, errors.Wrap(err, "render voucher")
	}
	return buf.Bytes(), nil
}
