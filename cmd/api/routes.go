package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes assembles the router and the middleware chain.
func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/movies", app.createMovieHandler)
	router.HandlerFunc(http.MethodGet, "/movies", app.listMoviesHandler)
	router.HandlerFunc(http.MethodDelete, "/movies", app.deleteMovieHandler)
	router.HandlerFunc(http.MethodGet, "/movies/:id", app.showMovieHandler)

	// Creation via the external metadata service lives under the singular
	// /movie prefix so the static /movie/random route can't collide with the
	// /movies/:id wildcard.
	router.HandlerFunc(http.MethodPost, "/movie", app.createMovieFromLookupHandler)
	router.HandlerFunc(http.MethodPost, "/movie/random", app.createRandomMovieHandler)

	router.HandlerFunc(http.MethodPost, "/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodGet, "/login", app.loginHandler)
	router.HandlerFunc(http.MethodGet, "/users", app.showUserHandler)
	router.HandlerFunc(http.MethodPut, "/users", app.updateUserHandler)

	router.HandlerFunc(http.MethodPost, "/watched", app.createWatchedRecordHandler)
	router.HandlerFunc(http.MethodPut, "/watched", app.updateWatchRecordHandler)
	router.HandlerFunc(http.MethodGet, "/watched/:user_id", app.listWatchedHandler)
	router.HandlerFunc(http.MethodPost, "/watchlater", app.createWatchLaterRecordHandler)
	router.HandlerFunc(http.MethodGet, "/watchlater/:user_id", app.listWatchLaterHandler)

	return app.recoverPanic(app.rateLimit(router))
}
