//go:build unit

package api_test

import (
	"net/http"
	"testing"

	"bookhub-loans/internal/handler/api"
	resdto "bookhub-loans/internal/handler/dto/response"
	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/usecase/commands"
	"bookhub-loans/internal/usecase/queries"
	"bookhub-loans/tests/common/builder"
	"bookhub-loans/tests/common/httptest"
	"bookhub-loans/tests/common/testutil"
	usecasemock "bookhub-loans/tests/mock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type LoanHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *usecasemock.MockLoanCommands
	mockQueries  *usecasemock.MockLoanQueries
	handler      *api.LoanHandler
}

func (s *LoanHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = usecasemock.NewMockLoanCommands(s.mockCtrl)
	s.mockQueries = usecasemock.NewMockLoanQueries(s.mockCtrl)
	s.handler = api.NewLoanHandler(s.mockCommands, s.mockQueries)

	s.router.POST("/loans", s.handler.CreateLoan)
	s.router.GET("/loans", s.handler.ListLoans)
	s.router.GET("/loans/overdue", s.handler.ListOverdueLoans)
	s.router.GET("/loans/user/:userId", s.handler.ListUserLoans)
	s.router.GET("/loans/:id", s.handler.GetLoan)
	s.router.POST("/loans/:id/return", s.handler.ReturnLoan)
}

func (s *LoanHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestLoanHandlerSuite(t *testing.T) {
	suite.Run(t, new(LoanHandlerTestSuite))
}

// ================================================================================
// TestCreateLoan
// ================================================================================

func (s *LoanHandlerTestSuite) TestCreateLoan() {
	url := "/loans"

	b := builder.NewLoanBuilder()
	reqBody := b.BuildCreateRequestDTO()
	returnView := b.BuildView()

	s.Run("success: returns 201 Created for valid request", func() {
		s.mockCommands.EXPECT().CreateLoan(gomock.Any(), gomock.Any()).
			Return(&commands.CreateLoanResult{Loan: returnView}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, nil)

		var body resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(returnView.ID, body.ID)
		s.Equal(returnView.BookTitle, body.BookTitle)
	})

	s.Run("success: replayed idempotent request returns 200 OK", func() {
		key := uuid.New()
		s.mockCommands.EXPECT().CreateLoan(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, params commands.CreateLoanParams) (*commands.CreateLoanResult, error) {
				s.Require().NotNil(params.IdempotencyKey)
				s.Equal(key, *params.IdempotencyKey)
				return &commands.CreateLoanResult{Loan: returnView, IsReplayed: true}, nil
			}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody,
			map[string]string{"Idempotency-Key": key.String()})

		var body resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(returnView.ID, body.ID)
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		cases := []struct {
			name   string
			mutate func(m map[string]any)
		}{
			{name: "missing field: user_id", mutate: testutil.Field("user_id", nil)},
			{name: "missing field: book_id", mutate: testutil.Field("book_id", nil)},
			{name: "missing field: duration_days", mutate: testutil.Field("duration_days", nil)},
			{name: "zero duration", mutate: testutil.Field("duration_days", 0)},
			{name: "negative duration", mutate: testutil.Field("duration_days", -3)},
			{name: "malformed user id", mutate: testutil.Field("user_id", "not-a-uuid")},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				requestMap := testutil.DtoMap(s.T(), reqBody, tc.mutate)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, nil)
				s.Equal(http.StatusBadRequest, rec.Code)
			})
		}
	})

	s.Run("error: 400 Bad Request on malformed idempotency key", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody,
			map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorContains(s.T(), rec, http.StatusBadRequest, "idempotency key")
	})

	s.Run("error: saga failures map to status codes", func() {
		cases := []struct {
			name       string
			err        error
			expectCode int
		}{
			{name: "user not found", err: commands.ErrUserNotFound, expectCode: http.StatusNotFound},
			{name: "book not found", err: commands.ErrBookNotFound, expectCode: http.StatusNotFound},
			{name: "book unavailable", err: commands.ErrBookUnavailable, expectCode: http.StatusConflict},
			{name: "loan limit exceeded", err: commands.ErrLoanLimitExceeded, expectCode: http.StatusConflict},
			{name: "remote timeout", err: commands.ErrRemoteTimeout, expectCode: http.StatusGatewayTimeout},
			{name: "remote unavailable", err: commands.ErrRemoteUnavailable, expectCode: http.StatusBadGateway},
			{name: "persistence failure", err: commands.ErrPersistenceFailed, expectCode: http.StatusInternalServerError},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				s.mockCommands.EXPECT().CreateLoan(gomock.Any(), gomock.Any()).
					Return(nil, tc.err).Times(1)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, nil)
				s.Equal(tc.expectCode, rec.Code)
			})
		}
	})
}

// ================================================================================
// TestReturnLoan
// ================================================================================

func (s *LoanHandlerTestSuite) TestReturnLoan() {
	b := builder.NewLoanBuilder()
	returnDate := b.DueDate.AddDate(0, 0, 2)
	returnedView := b.With(func(lb *builder.LoanBuilder) {
		lb.Status = "Returned"
		lb.ReturnDate = &returnDate
		lb.PenaltyCents = 100
	}).BuildView()

	s.Run("success: returns 200 with penalty", func() {
		s.mockCommands.EXPECT().ReturnLoan(gomock.Any(), returnedView.ID).
			Return(returnedView, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost,
			"/loans/"+returnedView.ID.String()+"/return", nil, nil)

		var body resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("Returned", body.Status)
		s.InDelta(1.0, body.PenaltyAmount, 0.001)
	})

	s.Run("error: 400 on malformed loan id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/loans/abc/return", nil, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: 404 when loan does not exist", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().ReturnLoan(gomock.Any(), id).
			Return(nil, commands.ErrLoanNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/loans/"+id.String()+"/return", nil, nil)
		httptest.AssertErrorContains(s.T(), rec, http.StatusNotFound, "Loan not found")
	})

	s.Run("error: 409 when loan was already returned", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().ReturnLoan(gomock.Any(), id).
			Return(nil, commands.ErrLoanAlreadyReturned).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/loans/"+id.String()+"/return", nil, nil)
		httptest.AssertErrorContains(s.T(), rec, http.StatusConflict, "already been returned")
	})
}

// ================================================================================
// TestGetLoan / listings
// ================================================================================

func (s *LoanHandlerTestSuite) TestGetLoan() {
	view := builder.NewLoanBuilder().BuildView()

	s.Run("success: returns 200", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), view.ID).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/loans/"+view.ID.String(), nil, nil)

		var body resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(view.ID, body.ID)
	})

	s.Run("error: 400 on malformed id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/loans/abc", nil, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: 404 when loan does not exist", func() {
		id := uuid.New()
		s.mockQueries.EXPECT().GetByID(gomock.Any(), id).
			Return(nil, infra.WrapErr("loan not found", nil, infra.KindNotFound)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/loans/"+id.String(), nil, nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *LoanHandlerTestSuite) TestListUserLoans() {
	view := builder.NewLoanBuilder().BuildView()

	s.Run("success: returns loans newest first", func() {
		s.mockQueries.EXPECT().ListByUser(gomock.Any(), view.UserID).
			Return([]*queries.LoanView{view}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/loans/user/"+view.UserID.String(), nil, nil)

		var body []resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body, 1)
		s.Equal(view.ID, body[0].ID)
	})

	s.Run("success: active=true lists only outstanding loans", func() {
		s.mockQueries.EXPECT().ListOutstandingByUser(gomock.Any(), view.UserID).
			Return([]*queries.LoanView{view}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/loans/user/"+view.UserID.String()+"?active=true", nil, nil)

		var body []resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body, 1)
	})

	s.Run("success: empty list for user with no loans", func() {
		userID := uuid.New()
		s.mockQueries.EXPECT().ListByUser(gomock.Any(), userID).
			Return([]*queries.LoanView{}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/loans/user/"+userID.String(), nil, nil)

		var body []resdto.LoanResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Empty(body)
	})
}

func (s *LoanHandlerTestSuite) TestListOverdueLoans() {
	overdue := builder.NewLoanBuilder().With(func(lb *builder.LoanBuilder) {
		lb.Status = "Overdue"
	}).BuildView()

	s.mockQueries.EXPECT().ListOverdue(gomock.Any()).
		Return([]*queries.LoanView{overdue}, nil).Times(1)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/loans/overdue", nil, nil)

	var body []resdto.LoanResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Len(body, 1)
	s.Equal("Overdue", body[0].Status)
}
