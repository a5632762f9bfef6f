package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Fedot0v/online-cinema-api/api"
	"github.com/Fedot0v/online-cinema-api/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

func (app *Application) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	cart, err := app.cartRepo.GetByUserId(r.Context(), userId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCartNotFound):
			app.badRequestResponse(w, r, fmt.Errorf("Cart is empty."))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if len(cart.Items) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("Cart is empty."))
		return
	}

	movieIds := make([]int, len(cart.Items))
	for i, item := range cart.Items {
		movieIds[i] = item.MovieID
	}

	// Movies that already belong to a pending or paid order of this user are
	// silently dropped from the new order and reported back to the client.
	blockedIds, err := app.orderRepo.GetBlockedMovieIds(r.Context(), userId, movieIds)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	blocked := make(map[int]bool, len(blockedIds))
	for _, id := range blockedIds {
		blocked[id] = true
	}

	eligible := make([]domain.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if !blocked[item.MovieID] {
			eligible = append(eligible, item)
		}
	}

	if len(eligible) == 0 {
		logger.Warn("order creation rejected: every cart item is already ordered", "cart_id", cart.ID)
		app.badRequestResponse(w, r, fmt.Errorf("No valid items in cart."))
		return
	}

	order := domain.NewOrderFromCart(userId, eligible)

	err = app.orderRepo.Create(r.Context(), order, cart.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	logger.Info("order created",
		"order_id", order.ID,
		"total_amount", order.TotalAmount,
		"excluded_movies", len(blockedIds),
	)

	resp := api.CreateOrderResponse{
		Order:            toApiOrder(order),
		ExcludedMovieIds: blockedIds,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	orderId, err := app.readIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	order, err := app.orderRepo.GetById(r.Context(), orderId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Order with id %d not found", orderId))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if order.UserID != userId {
		app.notAuthorizedResponse(w, r)
		return
	}

	if order.Status != domain.OrderStatusPending {
		app.badRequestResponse(w, r, fmt.Errorf("Order cannot be canceled"))
		return
	}

	err = app.orderRepo.UpdateStatus(r.Context(), order.ID, domain.OrderStatusPending, domain.OrderStatusCanceled)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEditConflict):
			logger.Warn("order cancel lost a concurrent status race", "order_id", order.ID)
			app.editConflictResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	logger.Info("order canceled", "order_id", order.ID)

	resp := api.MessageResponse{
		Message: "Your order is successfully canceled.",
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userId := app.contextGetUserId(r)

	orders, err := app.orderRepo.GetAllByUserId(r.Context(), userId)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.OrderListResponse{
		Orders: toApiOrders(orders),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetAllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := app.parseOrderFilters(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input := struct {
		Status   string `validate:"omitempty,order_status"`
		Page     int    `validate:"min=1"`
		PageSize int    `validate:"min=1,max=100"`
	}{
		Page:     filters.Page,
		PageSize: filters.PageSize,
	}
	if filters.Status != nil {
		input.Status = string(*filters.Status)
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	orders, metadata, err := app.orderRepo.GetAll(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.OrderListResponse{
		Orders:   toApiOrders(orders),
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) parseOrderFilters(r *http.Request) (domain.OrderFilters, error) {
	filters := domain.OrderFilters{
		Pagination: domain.Pagination{
			Page:     DefaultPage,
			PageSize: DefaultPageSize,
		},
	}

	query := r.URL.Query()

	if v := query.Get("userId"); v != "" {
		userId, err := strconv.Atoi(v)
		if err != nil {
			return filters, fmt.Errorf("invalid userId parameter")
		}
		filters.UserID = &userId
	}

	if v := query.Get("status"); v != "" {
		status := domain.OrderStatus(v)
		filters.Status = &status
	}

	if v := query.Get("dateFrom"); v != "" {
		dateFrom, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, fmt.Errorf("invalid dateFrom parameter, expected RFC 3339 timestamp")
		}
		filters.DateFrom = &dateFrom
	}

	if v := query.Get("dateTo"); v != "" {
		dateTo, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, fmt.Errorf("invalid dateTo parameter, expected RFC 3339 timestamp")
		}
		filters.DateTo = &dateTo
	}

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return filters, fmt.Errorf("invalid page parameter")
		}
		filters.Page = page
	}

	if v := query.Get("pageSize"); v != "" {
		pageSize, err := strconv.Atoi(v)
		if err != nil {
			return filters, fmt.Errorf("invalid pageSize parameter")
		}
		filters.PageSize = pageSize
	}

	return filters, nil
}

func toApiOrders(orders []*domain.Order) []api.Order {
	apiOrders := make([]api.Order, len(orders))
	for i, order := range orders {
		apiOrders[i] = toApiOrder(order)
	}

	return apiOrders
}

func toApiOrder(order *domain.Order) api.Order {
	items := make([]api.OrderItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = api.OrderItem{
			MovieId:      item.MovieID,
			PriceAtOrder: item.PriceAtOrder,
		}
	}

	return api.Order{
		Id:          order.ID,
		UserId:      order.UserID,
		CreatedAt:   order.CreatedAt,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		OrderItems:  items,
	}
}

func toApiMetadata(metadata *domain.Metadata) *api.Metadata {
	if metadata == nil {
		return nil
	}

	return &api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}
