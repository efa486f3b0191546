package middleware

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rwpay/internal/domain/reconciliation"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom binding tags to gin's validator. Safe to call repeatedly.
//
//	Month string `form:"month" binding:"omitempty,yearmonth"`
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = v.RegisterValidation("yearmonth", validateYearMonth)
	})
	return registerErr
}

func validateYearMonth(fl validator.FieldLevel) bool {
	_, err := reconciliation.ParseMonth(fl.Field().String())
	return err == nil
}
