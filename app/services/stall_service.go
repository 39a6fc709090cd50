package services

import (
	"context"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
)

// StallCard is a stall as listed on the home page.
type StallCard struct {
	models.Stall
	Availability models.Availability `json:"availability"`
	StatusLabel  string              `json:"status_label"`
	CanOrder     bool                `json:"can_order"`
}

func cardOf(s models.Stall) StallCard {
	s.MenuItems = nil
	s.RazorpayAccountID = ""
	return StallCard{
		Stall:        s,
		Availability: s.Availability(),
		StatusLabel:  s.StatusLabel(),
		CanOrder:     s.CanOrder(),
	}
}

// MenuSection is one category on a stall page.
type MenuSection struct {
	Category models.Category   `json:"category"`
	Items    []models.MenuItem `json:"items"`
}

// StallPage is a stall with its available menu.
type StallPage struct {
	StallCard
	Menu []MenuSection `json:"menu"`
}

// StallService serves the student-facing catalogue.
type StallService struct {
	stalls *repositories.StallRepository
}

func NewStallService(stalls *repositories.StallRepository) *StallService {
	return &StallService{stalls: stalls}
}

func (s *StallService) List(ctx context.Context) ([]StallCard, error) {
	stalls, err := s.stalls.All(ctx)
	if err != nil {
		return nil, err
	}
	cards := make([]StallCard, len(stalls))
	for i, st := range stalls {
		cards[i] = cardOf(st)
	}
	return cards, nil
}

func (s *StallService) Get(ctx context.Context, id string) (StallCard, error) {
	stall, err := s.stalls.FindByID(ctx, id)
	if err != nil {
		return StallCard{}, missing(err, "stall")
	}
	return cardOf(stall), nil
}

// Menu lists a stall's available items.
func (s *StallService) Menu(ctx context.Context, stallID string) ([]models.MenuItem, error) {
	return s.stalls.Menu(ctx, stallID, true)
}

// Page is a stall with its available menu grouped by category.
func (s *StallService) Page(ctx context.Context, id string) (StallPage, error) {
	card, err := s.Get(ctx, id)
	if err != nil {
		return StallPage{}, err
	}
	items, err := s.Menu(ctx, id)
	if err != nil {
		return StallPage{}, err
	}
	return StallPage{StallCard: card, Menu: groupMenu(items)}, nil
}

func groupMenu(items []models.MenuItem) []MenuSection {
	byCat := make(map[models.Category][]models.MenuItem)
	for _, it := range items {
		byCat[it.Category] = append(byCat[it.Category], it)
	}
	sections := []MenuSection{}
	for _, c := range models.Categories {
		if len(byCat[c]) > 0 {
			sections = append(sections, MenuSection{Category: c, Items: byCat[c]})
			delete(byCat, c)
		}
	}
	for _, it := range items {
		if rest, ok := byCat[it.Category]; ok {
			sections = append(sections, MenuSection{Category: it.Category, Items: rest})
			delete(byCat, it.Category)
		}
	}
	return sections
}
