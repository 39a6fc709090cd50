// Package schema is the read-only GraphQL view of the stall catalogue.
package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/services"
	gql "github.com/foodle-app/foodle/pkg/graphql"
)

var menuItemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MenuItem",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"stallId":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: item(func(m models.MenuItem) any { return m.StallID })},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"category":    &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: item(func(m models.MenuItem) any { return string(m.Category) })},
		"price":       &graphql.Field{Type: graphql.NewNonNull(graphql.Float), Resolve: item(func(m models.MenuItem) any { return m.Price.InexactFloat64() })},
		"isAvailable": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: item(func(m models.MenuItem) any { return m.IsAvailable })},
	},
})

var stallType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Stall",
	Fields: graphql.Fields{
		"id":           &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: card(func(s services.StallCard) any { return s.ID })},
		"name":         &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: card(func(s services.StallCard) any { return s.Name })},
		"description":  &graphql.Field{Type: graphql.String, Resolve: card(func(s services.StallCard) any { return s.Description })},
		"isOpen":       &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: card(func(s services.StallCard) any { return s.IsOpen })},
		"isSnoozed":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: card(func(s services.StallCard) any { return s.IsSnoozed })},
		"availability": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: card(func(s services.StallCard) any { return string(s.Availability) })},
		"statusLabel":  &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: card(func(s services.StallCard) any { return s.StatusLabel })},
		"canOrder":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: card(func(s services.StallCard) any { return s.CanOrder })},
		"prepTimeMins": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: card(func(s services.StallCard) any { return s.PrepTimeMins })},
	},
})

// New builds the schema over the stall service.
func New(stalls *services.StallService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stalls": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(stallType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return stalls.List(p.Context)
				},
			},
			"stall": &graphql.Field{
				Type: stallType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					return stalls.Get(p.Context, id)
				},
			},
			"menu": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(menuItemType))),
				Args: graphql.FieldConfigArgument{
					"stallId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["stallId"].(string)
					return stalls.Menu(p.Context, id)
				},
			},
		},
	})
	return gql.NewSchema(query)
}

func card(get func(services.StallCard) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		s, ok := p.Source.(services.StallCard)
		if !ok {
			return nil, nil
		}
		return get(s), nil
	}
}

func item(get func(models.MenuItem) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		m, ok := p.Source.(models.MenuItem)
		if !ok {
			return nil, nil
		}
		return get(m), nil
	}
}
