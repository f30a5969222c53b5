package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/roach88/storefront/internal/domain"
)

// renderText prints an operation result for humans. Types without a
// dedicated layout fall back to indented JSON.
func renderText(w io.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		_, err := fmt.Fprintln(w, "OK")
		return err
	case string:
		if x == "" {
			x = "OK"
		}
		_, err := fmt.Fprintln(w, x)
		return err
	case *domain.User:
		if x == nil {
			_, err := fmt.Fprintln(w, "OK")
			return err
		}
		return renderUser(w, *x)
	case domain.User:
		return renderUser(w, x)
	case domain.Store:
		return renderStore(w, x)
	case []domain.Store:
		return renderStores(w, x)
	case domain.Page[domain.Store]:
		if err := renderStores(w, x.Data); err != nil {
			return err
		}
		p := x.Pagination
		_, err := fmt.Fprintf(w, "page %d of %d, %d total\n", p.Page, p.TotalPages, p.Total)
		return err
	case domain.Review:
		return renderReviews(w, []domain.Review{x})
	case []domain.Review:
		return renderReviews(w, x)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

func renderUser(w io.Writer, u domain.User) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", u.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", u.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	fmt.Fprintf(tw, "Verified:\t%t\n", u.IsEmailVerified)
	return tw.Flush()
}

func renderStore(w io.Writer, s domain.Store) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", s.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", s.Name)
	fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
	fmt.Fprintf(tw, "Address:\t%s\n", s.Address)
	if s.Email != "" {
		fmt.Fprintf(tw, "Email:\t%s\n", s.Email)
	}
	fmt.Fprintf(tw, "Rating:\t%s\n", rating(s))
	fmt.Fprintf(tw, "Description:\t%s\n", s.Description)
	return tw.Flush()
}

func renderStores(w io.Writer, stores []domain.Store) error {
	if len(stores) == 0 {
		_, err := fmt.Fprintln(w, "No stores.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tRATING")
	for _, s := range stores {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Name, s.Status, rating(s))
	}
	return tw.Flush()
}

func renderReviews(w io.Writer, reviews []domain.Review) error {
	if len(reviews) == 0 {
		_, err := fmt.Fprintln(w, "No reviews.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tRATING\tREVIEWER")
	for _, r := range reviews {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.ID, r.Title, r.Rating, r.Reviewer)
	}
	return tw.Flush()
}

func rating(s domain.Store) string {
	if s.AverageRating == nil {
		return "-"
	}
	out := strconv.FormatFloat(*s.AverageRating, 'f', 1, 64)
	if s.TotalReviews != nil {
		out += fmt.Sprintf(" (%d)", *s.TotalReviews)
	}
	return out
}
