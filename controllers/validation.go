package controllers

import (
	"pizza-order-service/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("orderstatus", validOrderStatus)
	}
}

// validOrderStatus accepts only the known kitchen statuses.
func validOrderStatus(fl validator.FieldLevel) bool {
	_, ok := models.ParseOrderStatus(fl.Field().String())
	return ok
}
