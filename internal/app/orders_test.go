package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Fedot0v/online-cinema-api/api"
	"github.com/Fedot0v/online-cinema-api/internal/domain"
	"github.com/Fedot0v/online-cinema-api/internal/mocks"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var testMovieTwo = &domain.Movie{
	ID:    2,
	Title: "Heat",
	Year:  1995,
	Price: decimal.NewFromFloat(5.50),
}

var testOrderCreatedAt = time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC)

func userCart() *domain.Cart {
	return &domain.Cart{
		ID:     3,
		UserID: 1,
		Items: []domain.CartItem{
			{ID: 7, CartID: 3, MovieID: 1, Movie: testMovie},
			{ID: 8, CartID: 3, MovieID: 2, Movie: testMovieTwo},
		},
	}
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:          10,
		UserID:      1,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.NewFromFloat(15.49),
		Items: []domain.OrderItem{
			{ID: 1, OrderID: 10, MovieID: 1, PriceAtOrder: testMovie.Price},
			{ID: 2, OrderID: 10, MovieID: 2, PriceAtOrder: testMovieTwo.Price},
		},
		CreatedAt: testOrderCreatedAt,
	}
}

type OrdersTestSuite struct {
	suite.Suite
	app       *Application
	orderRepo *mocks.MockOrderRepo
	cartRepo  *mocks.MockCartRepo
}

func (s *OrdersTestSuite) SetupTest() {
	s.orderRepo = new(mocks.MockOrderRepo)
	s.cartRepo = new(mocks.MockCartRepo)

	s.app = newTestApplication(func(a *Application) {
		a.orderRepo = s.orderRepo
		a.cartRepo = s.cartRepo
		a.sessionManager = scs.New()
	})
}

func TestOrdersSuite(t *testing.T) {
	suite.Run(t, new(OrdersTestSuite))
}

func (s *OrdersTestSuite) serveOrders(w http.ResponseWriter, r *http.Request) {
	router := chi.NewRouter()
	router.Post("/orders", s.app.CreateOrderHandler)
	router.Get("/orders", s.app.GetUserOrdersHandler)
	router.With(s.app.requirePermission(domain.PermissionManageOrders)).Get("/orders/admin", s.app.GetAllOrdersHandler)
	router.Post("/orders/{orderID}/cancel", s.app.CancelOrderHandler)

	handler := http.Handler(router)
	handler = s.app.sessionManager.LoadAndSave(handler)
	handler = s.app.requireAuthentication(handler)
	handler.ServeHTTP(w, r)
}

func (s *OrdersTestSuite) TestCreateOrderHandler() {
	tests := []struct {
		name            string
		setupMocks      func()
		wantStatus      int
		wantErrMessage  string
		wantItemCount   int
		wantTotal       decimal.Decimal
		wantExcludedIds []int
	}{
		{
			name: "should fail when user has no cart",
			setupMocks: func() {
				s.cartRepo.On("GetByUserId", mock.Anything, 1).Return(nil, domain.ErrCartNotFound)
			},
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: "Cart is empty.",
		},
		{
			name: "should fail when cart has no items",
			setupMocks: func() {
				s.cartRepo.On("GetByUserId", mock.Anything, 1).Return(&domain.Cart{ID: 3, UserID: 1}, nil)
			},
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: "Cart is empty.",
		},
		{
			name: "should fail when every cart item is already ordered",
			setupMocks: func() {
				s.cartRepo.On("GetByUserId", mock.Anything, 1).Return(userCart(), nil)
				s.orderRepo.On("GetBlockedMovieIds", mock.Anything, 1, []int{1, 2}).Return([]int{1, 2}, nil)
			},
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: "No valid items in cart.",
		},
		{
			name: "should fail when the repository fails",
			setupMocks: func() {
				s.cartRepo.On("GetByUserId", mock.Anything, 1).Return(userCart(), nil)
				s.orderRepo.On("GetBlockedMovieIds", mock.Anything, 1, []int{1, 2}).Return(nil, fmt.Errorf("query failed"))
			},
			wantStatus:     http.StatusInternalServerError,
			wantErrMessage: ErrInternalServer,
		},
		{
			name: "should drop already ordered movies and report them",
			setupMocks: func() {
				s.cartRepo.On("GetByUserId", mock.Anything, 1).Return(userCart(), nil)
				s.orderRepo.On("GetBlockedMovieIds", mock.Anything, 1, []int{1, 2}).Return([]int{2}, nil)
				s.orderRepo.On("Create", mock.Anything, mock.Anything, 3).
					Run(func(args mock.Arguments) {
						order := args.Get(1).(*domain.Order)
						order.ID = 10
					}).
					Return(nil)
			},
			wantStatus:      http.StatusCreated,
			wantItemCount:   1,
			wantTotal:       testMovie.Price,
			wantExcludedIds: []int{2},
		},
		{
			name: "should create an order from the full cart",
			setupMocks: func() {
				s.cartRepo.On("GetByUserId", mock.Anything, 1).Return(userCart(), nil)
				s.orderRepo.On("GetBlockedMovieIds", mock.Anything, 1, []int{1, 2}).Return([]int{}, nil)
				s.orderRepo.On("Create", mock.Anything, mock.Anything, 3).
					Run(func(args mock.Arguments) {
						order := args.Get(1).(*domain.Order)
						order.ID = 10
					}).
					Return(nil)
			},
			wantStatus:      http.StatusCreated,
			wantItemCount:   2,
			wantTotal:       decimal.NewFromFloat(15.49),
			wantExcludedIds: []int{},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.cartRepo.AssertExpectations(s.T())
			defer s.orderRepo.AssertExpectations(s.T())

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			w, r := executeRequest(s.T(), http.MethodPost, "/orders", nil)
			r = setupTestSession(s.T(), s.app, r, 1)

			s.serveOrders(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusCreated {
				var response api.CreateOrderResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err, "Failed to decode response")

				s.Equal(10, response.Order.Id)
				s.Equal(1, response.Order.UserId)
				s.Equal(string(domain.OrderStatusPending), response.Order.Status)
				s.Len(response.Order.OrderItems, tt.wantItemCount)
				s.True(tt.wantTotal.Equal(response.Order.TotalAmount))
				s.Equal(tt.wantExcludedIds, response.ExcludedMovieIds)
			}

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}

func (s *OrdersTestSuite) TestCancelOrderHandler() {
	tests := []struct {
		name           string
		url            string
		setupMocks     func()
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:           "should fail when order id is not a number",
			url:            "/orders/abc/cancel",
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: "invalid orderID parameter",
		},
		{
			name: "should fail when order does not exist",
			url:  "/orders/99/cancel",
			setupMocks: func() {
				s.orderRepo.On("GetById", mock.Anything, 99).Return(nil, domain.ErrRecordNotFound)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: "Order with id 99 not found",
		},
		{
			name: "should fail when order belongs to another user",
			url:  "/orders/10/cancel",
			setupMocks: func() {
				order := pendingOrder()
				order.UserID = 2
				s.orderRepo.On("GetById", mock.Anything, 10).Return(order, nil)
			},
			wantStatus:     http.StatusForbidden,
			wantErrMessage: "Not authorized",
		},
		{
			name: "should fail when order is already paid",
			url:  "/orders/10/cancel",
			setupMocks: func() {
				order := pendingOrder()
				order.Status = domain.OrderStatusPaid
				s.orderRepo.On("GetById", mock.Anything, 10).Return(order, nil)
			},
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: "Order cannot be canceled",
		},
		{
			name: "should fail when the order status changed concurrently",
			url:  "/orders/10/cancel",
			setupMocks: func() {
				s.orderRepo.On("GetById", mock.Anything, 10).Return(pendingOrder(), nil)
				s.orderRepo.On("UpdateStatus", mock.Anything, 10, domain.OrderStatusPending, domain.OrderStatusCanceled).
					Return(domain.ErrEditConflict)
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: "Unable to update the record due to an edit conflict, please try again",
		},
		{
			name: "should cancel the order",
			url:  "/orders/10/cancel",
			setupMocks: func() {
				s.orderRepo.On("GetById", mock.Anything, 10).Return(pendingOrder(), nil)
				s.orderRepo.On("UpdateStatus", mock.Anything, 10, domain.OrderStatusPending, domain.OrderStatusCanceled).
					Return(nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.orderRepo.AssertExpectations(s.T())

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			w, r := executeRequest(s.T(), http.MethodPost, tt.url, nil)
			r = setupTestSession(s.T(), s.app, r, 1)

			s.serveOrders(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusOK {
				var response api.MessageResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err, "Failed to decode response")

				s.Equal("Your order is successfully canceled.", response.Message)
			}

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}

func (s *OrdersTestSuite) TestGetUserOrdersHandler() {
	s.Run("should fail when the repository fails", func() {
		s.SetupTest()

		defer s.orderRepo.AssertExpectations(s.T())

		s.orderRepo.On("GetAllByUserId", mock.Anything, 1).Return(nil, fmt.Errorf("query failed"))

		w, r := executeRequest(s.T(), http.MethodGet, "/orders", nil)
		r = setupTestSession(s.T(), s.app, r, 1)

		s.serveOrders(w, r)

		s.Equal(http.StatusInternalServerError, w.Code)
	})

	s.Run("should return the user's orders", func() {
		s.SetupTest()

		defer s.orderRepo.AssertExpectations(s.T())

		s.orderRepo.On("GetAllByUserId", mock.Anything, 1).Return([]*domain.Order{pendingOrder()}, nil)

		w, r := executeRequest(s.T(), http.MethodGet, "/orders", nil)
		r = setupTestSession(s.T(), s.app, r, 1)

		s.serveOrders(w, r)

		s.Require().Equal(http.StatusOK, w.Code)

		var response api.OrderListResponse
		err := json.NewDecoder(w.Body).Decode(&response)
		s.Require().NoError(err, "Failed to decode response")

		want := []api.Order{
			{
				Id:          10,
				UserId:      1,
				CreatedAt:   testOrderCreatedAt,
				Status:      string(domain.OrderStatusPending),
				TotalAmount: decimal.NewFromFloat(15.49),
				OrderItems: []api.OrderItem{
					{MovieId: 1, PriceAtOrder: testMovie.Price},
					{MovieId: 2, PriceAtOrder: testMovieTwo.Price},
				},
			},
		}

		diff := cmp.Diff(want, response.Orders)
		s.Empty(diff, "Orders mismatch (-want +got):\n%s", diff)
		s.Nil(response.Metadata)
	})
}

func (s *OrdersTestSuite) TestGetAllOrdersHandler() {
	tests := []struct {
		name           string
		url            string
		group          domain.Group
		setupMocks     func()
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:           "should fail when user lacks the manage orders permission",
			url:            "/orders/admin",
			group:          domain.GroupUser,
			wantStatus:     http.StatusForbidden,
			wantErrMessage: "You don't have the necessary permission to access this resource",
		},
		{
			name:           "should fail when status filter is invalid",
			url:            "/orders/admin?status=shipped",
			group:          domain.GroupAdmin,
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must be one of: pending, paid, canceled",
		},
		{
			name:           "should fail when page is below one",
			url:            "/orders/admin?page=0",
			group:          domain.GroupAdmin,
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must be at least 1",
		},
		{
			name:           "should fail when dateFrom is not a timestamp",
			url:            "/orders/admin?dateFrom=yesterday",
			group:          domain.GroupAdmin,
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: "invalid dateFrom parameter, expected RFC 3339 timestamp",
		},
		{
			name:  "should list orders with pagination metadata",
			url:   "/orders/admin?status=paid&page=2&pageSize=5",
			group: domain.GroupAdmin,
			setupMocks: func() {
				status := domain.OrderStatusPaid
				filters := domain.OrderFilters{
					Status:     &status,
					Pagination: domain.Pagination{Page: 2, PageSize: 5},
				}
				s.orderRepo.On("GetAll", mock.Anything, filters).
					Return([]*domain.Order{pendingOrder()}, &domain.Metadata{
						CurrentPage:  2,
						FirstPage:    1,
						LastPage:     3,
						PageSize:     5,
						TotalRecords: 11,
					}, nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.orderRepo.AssertExpectations(s.T())

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			w, r := executeRequest(s.T(), http.MethodGet, tt.url, nil)
			r = setupTestSessionWithGroup(s.T(), s.app, r, 1, tt.group)

			s.serveOrders(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusOK {
				var response api.OrderListResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err, "Failed to decode response")

				s.Len(response.Orders, 1)
				s.Require().NotNil(response.Metadata)
				s.Equal(2, response.Metadata.CurrentPage)
				s.Equal(11, response.Metadata.TotalRecords)
			}

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}
