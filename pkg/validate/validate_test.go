package validate_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/foodle-app/foodle/pkg/validate"
)

type signupInput struct {
	Name     string `json:"name"     validate:"required,min=2,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestStruct_Valid(t *testing.T) {
	errs := validate.Struct(signupInput{Name: "Asha", Email: "asha@campus.edu", Password: "secret123"})
	assert.False(t, validate.HasErrors(errs), errs)
}

func TestStruct_Required(t *testing.T) {
	errs := validate.Struct(signupInput{})
	assert.Equal(t, "The name field is required.", errs["name"])
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestStruct_Lengths(t *testing.T) {
	errs := validate.Struct(signupInput{Name: "A", Email: "nope", Password: "short"})
	assert.Equal(t, "The name must be at least 2 characters.", errs["name"])
	assert.Equal(t, "The email must be a valid email address.", errs["email"])
	assert.Equal(t, "The password must be at least 8 characters.", errs["password"])
}

type paymentInput struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

func TestStruct_Decimal(t *testing.T) {
	assert.Empty(t, validate.Struct(paymentInput{Amount: decimal.NewFromInt(135)}))
	assert.Contains(t, validate.Struct(paymentInput{}), "amount")
	assert.Equal(t, "The amount must be greater than 0.",
		validate.Struct(paymentInput{Amount: decimal.NewFromInt(-5)})["amount"])
}

type stallInput struct {
	PrepTime *int    `json:"prep_time_mins" validate:"nullable,gte=0,lte=180"`
	Action   string  `json:"action"         validate:"required,in=accept|ready|complete|cancel"`
	Code     string  `json:"pickup_code"    validate:"nullable,digits=4"`
	ItemID   *string `json:"menu_item_id"   validate:"nullable,uuid"`
}

func TestStruct_PointersAndOptions(t *testing.T) {
	ten, tooLong := 10, 500
	bad := "x"

	assert.Empty(t, validate.Struct(stallInput{Action: "accept"}))
	assert.Empty(t, validate.Struct(stallInput{PrepTime: &ten, Action: "ready", Code: "0420"}))

	errs := validate.Struct(stallInput{PrepTime: &tooLong, Action: "teleport", Code: "42", ItemID: &bad})
	assert.Equal(t, "The prep_time_mins must be less than or equal to 180.", errs["prep_time_mins"])
	assert.Equal(t, "The selected action is invalid.", errs["action"])
	assert.Equal(t, "The pickup_code must be 4 digits.", errs["pickup_code"])
	assert.Equal(t, "The menu_item_id must be a valid UUID.", errs["menu_item_id"])
}

func TestStruct_IgnoresNonStruct(t *testing.T) {
	assert.Empty(t, validate.Struct("hello"))
}
