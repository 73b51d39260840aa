package response

import (
	"errors"
	"fmt"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"net/http"
	"strings"
)

// Response представляет общую структуру ответа API
type Response struct {
	Status string      `json:"status" example:"success/error"` // "success" or "error"
	Error  string      `json:"error,omitempty" example:"Error message if status is 'error'"`
	Data   interface{} `json:"data,omitempty"` // Payload for success responses
}

// SuccessResponse используется для Swagger, чтобы показать структуру успешного ответа с data
type SuccessResponse struct {
	Status string      `json:"status" example:"success"`
	Data   interface{} `json:"data"`
}

// ErrorResponse используется для Swagger, чтобы показать структуру ответа с ошибкой
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Error  string `json:"error" example:"Error message"`
}

const (
	StatusOK    = "success"
	StatusError = "error"
)

// --- Функции для формирования стандартных ответов ---

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Success(data interface{}) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

func Error(message string) Response {
	return Response{
		Status: StatusError,
		Error:  message,
	}
}

// --- Функции для отправки ответов ---

func SendSuccess(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, Success(data))
}

func SendOK(w http.ResponseWriter, r *http.Request, statusCode int) {
	render.Status(r, statusCode)
	render.JSON(w, r, OK())
}

func SendError(w http.ResponseWriter, r *http.Request, statusCode int, errorMessage string) {
	render.Status(r, statusCode)
	render.JSON(w, r, Error(errorMessage))
}

func SendValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var errMsgs []string
	var validationErrs validator.ValidationErrors

	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			// Формируем сообщение на основе тега валидации и поля
			errMsgs = append(errMsgs, fmt.Sprintf("field '%s' failed on a '%s' validation", strings.ToLower(fe.Field()), fe.Tag()))
		}
	} else {
		// Если это не ошибка валидатора, просто используем текст ошибки
		errMsgs = append(errMsgs, err.Error())
	}

	render.Status(r, http.StatusBadRequest) // Ошибки валидации обычно 400
	render.JSON(w, r, Error(strings.Join(errMsgs, "; ")))
}
