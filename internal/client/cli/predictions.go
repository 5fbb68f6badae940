package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/leftoverchef/internal/client/models"
)

// Predict uploads the image at path and prints what was found.
func (a *App) Predict(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("usage: predict <image-file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	p, err := a.api.Predict(ctx, path, data)
	if err != nil {
		return explain(err)
	}
	a.printPrediction(p)
	return nil
}

// History prints the owner's records. page and limit of 0 list everything.
func (a *App) History(ctx context.Context, page, limit int) error {
	res, err := a.api.History(ctx, page, limit)
	if err != nil {
		return explain(err)
	}

	if len(res.Data) == 0 {
		fmt.Fprintln(a.out, "No predictions yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tINGREDIENTS")
	for _, p := range res.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.CreatedAt.Local().Format(time.DateTime), labels(p.Items))
	}
	tw.Flush()

	if pg := res.Pagination; pg != nil {
		fmt.Fprintf(a.out, "page %d of %d (%d total)\n", pg.CurrentPage, pg.TotalPages, pg.TotalItems)
	}
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("usage: show <id>")
	}
	p, err := a.api.Prediction(ctx, id)
	if err != nil {
		return explain(err)
	}
	a.printPrediction(p)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("usage: delete <id>")
	}
	if err := a.api.DeletePrediction(ctx, id); err != nil {
		return explain(err)
	}
	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

// Clear deletes the whole history; without force it asks first.
func (a *App) Clear(ctx context.Context, force bool) error {
	if !force {
		answer, err := getSimpleText(a.reader, "Delete ALL predictions? Type 'yes' to confirm", a.out)
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
	}

	n, err := a.api.ClearHistory(ctx)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(a.out, "Successfully deleted %d prediction(s)\n", n)
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	s, err := a.api.Stats(ctx)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(a.out, "Predictions: %d\nUnique ingredients: %d\n", s.TotalPredictions, s.UniqueIngredients)
	if len(s.TopIngredients) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, "Top ingredients:")
	for i, lc := range s.TopIngredients {
		fmt.Fprintf(a.out, "  %d. %s (%d)\n", i+1, lc.Name, lc.Count)
	}
	return nil
}

func (a *App) printPrediction(p *models.Prediction) {
	fmt.Fprintf(a.out, "Prediction %s\n", p.ID)
	fmt.Fprintf(a.out, "image: %s\n", p.ImagePath)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, it := range p.Items {
		fmt.Fprintf(tw, "  %s\t%.0f%%\n", it.Name, it.Confidence*100)
	}
	tw.Flush()

	if f := p.Freshness; f != nil {
		fmt.Fprintf(a.out, "freshness: %s (%.0f%%), edible: %t, donation eligible: %t\n",
			f.Status, f.Confidence*100, f.IsEdible, f.DonationEligible)
	}
}

func labels(items []models.PredictionItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return strings.Join(names, ", ")
}
