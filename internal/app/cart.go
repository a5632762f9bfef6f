package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Fedot0v/online-cinema-api/api"
	"github.com/Fedot0v/online-cinema-api/internal/domain"
)

func (app *Application) AddMovieToCartHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	var input api.AddMovieToCartRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	movie, err := app.movieRepo.GetById(r.Context(), input.MovieId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Movie with id %d not found", input.MovieId))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	item, err := app.cartRepo.AddMovie(r.Context(), userId, movie.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMovieAlreadyInCart):
			logger.Warn("movie already in cart", "movie_id", movie.ID)
			app.badRequestResponse(w, r, fmt.Errorf("Movie with id %d already in cart", movie.ID))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	item.Movie = movie

	logger.Info("movie added to cart", "movie_id", movie.ID, "cart_id", item.CartID)

	resp := api.CartItemResponse{
		CartItem: toApiCartItem(item),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) RemoveMovieFromCartHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	movieId, err := app.readIDParam(r, "movieID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	item, err := app.cartRepo.RemoveMovie(r.Context(), userId, movieId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCartNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Cart not found"))
		case errors.Is(err, domain.ErrMovieNotInCart):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Movie with id %d not found in cart", movieId))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	logger.Info("movie removed from cart", "movie_id", movieId, "cart_id", item.CartID)

	resp := api.CartItemResponse{
		CartItem: toApiCartItem(item),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetMyCartHandler(w http.ResponseWriter, r *http.Request) {
	userId := app.contextGetUserId(r)

	cart, err := app.cartRepo.GetByUserId(r.Context(), userId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCartNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Cart not found"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := api.CartResponse{
		Cart: toApiCart(cart),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	err := app.cartRepo.Delete(r.Context(), userId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCartNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Cart not found"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	logger.Info("cart cleared", "user_id", userId)

	w.WriteHeader(http.StatusNoContent)
}

func toApiCart(cart *domain.Cart) api.Cart {
	items := make([]api.CartItem, len(cart.Items))
	for i := range cart.Items {
		items[i] = toApiCartItem(&cart.Items[i])
	}

	return api.Cart{
		Id:          cart.ID,
		UserId:      cart.UserID,
		TotalAmount: cart.TotalAmount(),
		CartItems:   items,
	}
}

func toApiCartItem(item *domain.CartItem) api.CartItem {
	apiItem := api.CartItem{
		Id:      item.ID,
		CartId:  item.CartID,
		MovieId: item.MovieID,
		AddedAt: item.AddedAt,
	}

	if item.Movie != nil {
		movie := toApiMovie(item.Movie)
		apiItem.Movie = &movie
	}

	return apiItem
}

func toApiMovie(movie *domain.Movie) api.Movie {
	return api.Movie{
		Id:    movie.ID,
		Title: movie.Title,
		Year:  movie.Year,
		Price: movie.Price,
	}
}
