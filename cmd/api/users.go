package main

import (
	"errors"
	"net/http"

	"github.com/IrSokolova/Letterboxd/internal/data"
	"github.com/IrSokolova/Letterboxd/internal/validator"
)

// registerUserHandler for the "POST /register" endpoint.
func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string  `json:"username"`
		Password string  `json:"password"`
		Email    *string `json:"email"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &data.User{
		Username: input.Username,
		Email:    input.Email,
	}

	err = user.Password.Set(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	v := validator.New()

	if data.ValidateUser(v, user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Users.Insert(user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateUsername):
			app.conflictResponse(w, r, "This username is occupied")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// The welcome mail goes out in the background; a mail failure is logged
	// but never fails the registration.
	if user.Email != nil {
		recipient := *user.Email
		app.background(func() {
			err := app.mailer.Send(recipient, "user_welcome.tmpl", user)
			if err != nil {
				app.logger.PrintError(err, map[string]string{"recipient": recipient})
			}
		})
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loginHandler for the "GET /login?username=&password=" endpoint. An unknown
// username is a 404, a wrong password a 401.
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	username := app.readString(qs, "username", "")
	password := app.readString(qs, "password", "")

	v := validator.New()
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.models.Users.GetByUsername(username)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	match, err := user.Password.Matches(password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !match {
		app.wrongPasswordResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "Logged in"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showUserHandler for the "GET /users?user_id=" endpoint.
func (app *application) showUserHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	id := app.readInt(r.URL.Query(), "user_id", 0, v)
	v.Check(id > 0, "user_id", "must be a positive integer")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.models.Users.Get(int64(id))
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateUserHandler for the "PUT /users" endpoint. Only the fields present
// in the request body change.
func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID   int64   `json:"user_id"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		Email    *string `json:"email"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.models.Users.Get(input.UserID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Password != nil {
		err = user.Password.Set(*input.Password)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}
	if input.Email != nil {
		user.Email = input.Email
	}

	v := validator.New()

	if data.ValidateUser(v, user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Users.Update(user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateUsername):
			app.conflictResponse(w, r, "This username is occupied")
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
