// Package handler содержит HTTP-обработчики API сервиса управления базаром.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/bazar-system/internal/catalog"
	"github.com/mmeshcher/bazar-system/internal/lifecycle"
	"github.com/mmeshcher/bazar-system/internal/middleware"
	"github.com/mmeshcher/bazar-system/internal/model"
	"github.com/mmeshcher/bazar-system/internal/repository"
	"github.com/mmeshcher/bazar-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password, name, role string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)

	Institution(ctx context.Context) (*model.Institution, error)
	SaveInstitution(ctx context.Context, inst model.Institution) error

	AddProduct(ctx context.Context, p model.Product) (*model.Product, []model.Customer, error)
	Products(ctx context.Context) ([]model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	RegisterDonation(ctx context.Context, d model.Donation) (int64, error)
	Donations(ctx context.Context) ([]model.Donation, error)
	ResolveDonation(ctx context.Context, id int64, res lifecycle.Resolution) (*model.Donation, *model.Product, error)

	CreateDonor(ctx context.Context, d model.Donor) (int64, error)
	Donors(ctx context.Context) ([]model.Donor, error)

	CreateCustomer(ctx context.Context, c model.Customer) (int64, error)
	Customers(ctx context.Context) ([]model.Customer, error)
	UpdateCustomerProfile(ctx context.Context, id int64, sizes *model.SizeProfile, prefs *model.Preferences) error

	Checkout(ctx context.Context, req service.CheckoutRequest) (*model.Transaction, error)
	RecordExpense(ctx context.Context, tag, description string, amountCents int64) (int64, error)
	Transactions(ctx context.Context) ([]model.Transaction, error)
	Summary(ctx context.Context) (*service.FinanceSummary, error)

	CreatePartner(ctx context.Context, p model.Partner) (int64, error)
	Partners(ctx context.Context) ([]model.Partner, error)

	CreateSocialGoal(ctx context.Context, g model.SocialGoal) (int64, error)
	SocialGoals(ctx context.Context) ([]model.SocialGoal, error)

	ExportBackup(ctx context.Context) (*model.Backup, error)
	RestoreBackup(ctx context.Context, b *model.Backup) error
}

// Handler реализует HTTP-обработчики API сервиса управления базаром.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func centsToValue(c int64) float64 {
	return float64(c) / 100
}

func valueToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// respondError транслирует ошибки сервиса в HTTP-статусы.
func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	var status int
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrEmptyCart):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrDonationAlreadyResolved),
		errors.Is(err, lifecycle.ErrAlreadyResolved),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrProductCodeExists):
		status = http.StatusConflict
	case errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, lifecycle.ErrInvalidChannel),
		errors.Is(err, service.ErrInvalidPayment),
		errors.Is(err, service.ErrInvalidBackup):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrDonationNotFound),
		errors.Is(err, repository.ErrInstitutionNotRegistered):
		status = http.StatusNotFound
	default:
		h.logger.Error(op, zap.Error(err))
		status = http.StatusInternalServerError
	}
	http.Error(w, http.StatusText(status), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func idFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Register обрабатывает регистрацию нового оператора.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	operatorID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, req.Name, req.Role)
	if err != nil {
		h.respondError(w, err, "register user")
		return
	}

	h.authMiddleware.SetAuthCookie(w, operatorID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию оператора и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.respondError(w, err, "login user")
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"name": user.Name,
		"role": user.Role,
	})
}

type institutionRequest struct {
	Name      string `json:"name"`
	CNPJ      string `json:"cnpj"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	BazarName string `json:"bazar_name"`
}

// GetInstitution возвращает профиль учреждения.
func (h *Handler) GetInstitution(w http.ResponseWriter, r *http.Request) {
	inst, err := h.service.Institution(r.Context())
	if err != nil {
		h.respondError(w, err, "get institution")
		return
	}

	h.writeJSON(w, http.StatusOK, inst)
}

// SaveInstitution создаёт или обновляет профиль учреждения.
func (h *Handler) SaveInstitution(w http.ResponseWriter, r *http.Request) {
	var req institutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.SaveInstitution(r.Context(), model.Institution{
		Name:      req.Name,
		CNPJ:      req.CNPJ,
		Address:   req.Address,
		Phone:     req.Phone,
		Email:     req.Email,
		BazarName: req.BazarName,
	})
	if err != nil {
		h.respondError(w, err, "save institution")
		return
	}

	w.WriteHeader(http.StatusOK)
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Condition   string  `json:"condition"`
	Status      string  `json:"status"`
	Size        string  `json:"size"`
	Color       string  `json:"color"`
	Fabric      string  `json:"fabric"`
	Print       string  `json:"print"`
	Brand       string  `json:"brand"`
	Gender      string  `json:"gender"`
	ImageURL    string  `json:"image_url"`
	VideoURL    string  `json:"video_url"`
	InStore     bool    `json:"in_store"`
}

type productResponse struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Condition   string  `json:"condition"`
	Status      string  `json:"status"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Fabric      string  `json:"fabric,omitempty"`
	Print       string  `json:"print,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Gender      string  `json:"gender,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
	InStore     bool    `json:"in_store"`
	CreatedAt   string  `json:"created_at"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		SubCategory: p.SubCategory,
		Price:       centsToValue(p.PriceCents),
		Stock:       p.Stock,
		Condition:   string(p.Condition),
		Status:      string(p.Status),
		Size:        p.Size,
		Color:       p.Color,
		Fabric:      p.Fabric,
		Print:       p.Print,
		Brand:       p.Brand,
		Gender:      p.Gender,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		InStore:     p.InStore,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

type customerResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	TotalSpent  float64            `json:"total_spent"`
	Sizes       *model.SizeProfile `json:"sizes,omitempty"`
	Preferences *model.Preferences `json:"preferences,omitempty"`
}

func toCustomerResponse(c model.Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		TotalSpent:  centsToValue(c.TotalSpentCents),
		Sizes:       c.Sizes,
		Preferences: c.Preferences,
	}
}

type addProductResponse struct {
	Product productResponse    `json:"product"`
	Matches []customerResponse `json:"matches"`
}

// AddProduct регистрирует товар и возвращает покупателей с подходящими предпочтениями.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !model.Category(req.Category).Valid() {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	if req.Condition != "" && !model.Condition(req.Condition).Valid() {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	if req.Status != "" && !model.ProductStatus(req.Status).Valid() {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	product, matches, err := h.service.AddProduct(r.Context(), model.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    model.Category(req.Category),
		SubCategory: req.SubCategory,
		PriceCents:  valueToCents(req.Price),
		Stock:       req.Stock,
		Condition:   model.Condition(req.Condition),
		Status:      model.ProductStatus(req.Status),
		Size:        req.Size,
		Color:       req.Color,
		Fabric:      req.Fabric,
		Print:       req.Print,
		Brand:       req.Brand,
		Gender:      req.Gender,
		ImageURL:    req.ImageURL,
		VideoURL:    req.VideoURL,
		InStore:     req.InStore,
	})
	if err != nil {
		h.respondError(w, err, "add product")
		return
	}

	resp := addProductResponse{
		Product: toProductResponse(*product),
		Matches: make([]customerResponse, 0, len(matches)),
	}
	for _, c := range matches {
		resp.Matches = append(resp.Matches, toCustomerResponse(c))
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// GetProducts возвращает все товары.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		h.respondError(w, err, "get products")
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteProduct удаляет товар по идентификатору.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err, "delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type donationRequest struct {
	DonorID          *int64  `json:"donor_id"`
	ItemsDescription string  `json:"items_description"`
	EstimatedValue   float64 `json:"estimated_value"`
}

type donationResponse struct {
	ID               int64   `json:"id"`
	DonorID          *int64  `json:"donor_id,omitempty"`
	ReceivedAt       string  `json:"received_at"`
	Status           string  `json:"status"`
	ItemsDescription string  `json:"items_description"`
	EstimatedValue   float64 `json:"estimated_value"`
}

func toDonationResponse(d model.Donation) donationResponse {
	return donationResponse{
		ID:               d.ID,
		DonorID:          d.DonorID,
		ReceivedAt:       d.ReceivedAt.Format(time.RFC3339),
		Status:           string(d.Status),
		ItemsDescription: d.ItemsDescription,
		EstimatedValue:   centsToValue(d.EstimatedValueCents),
	}
}

// RegisterDonation регистрирует партию пожертвования.
func (h *Handler) RegisterDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.RegisterDonation(r.Context(), model.Donation{
		DonorID:             req.DonorID,
		ItemsDescription:    req.ItemsDescription,
		EstimatedValueCents: valueToCents(req.EstimatedValue),
	})
	if err != nil {
		h.respondError(w, err, "register donation")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetDonations возвращает партии пожертвований.
func (h *Handler) GetDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.Donations(r.Context())
	if err != nil {
		h.respondError(w, err, "get donations")
		return
	}

	resp := make([]donationResponse, 0, len(donations))
	for _, d := range donations {
		resp = append(resp, toDonationResponse(d))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type resolveDonationRequest struct {
	Discard  bool   `json:"discard"`
	Channel  string `json:"channel"`
	Category string `json:"category"`
}

type resolveDonationResponse struct {
	Donation donationResponse `json:"donation"`
	Product  *productResponse `json:"product,omitempty"`
}

// ResolveDonation завершает разбор партии пожертвования.
func (h *Handler) ResolveDonation(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req resolveDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	donation, product, err := h.service.ResolveDonation(r.Context(), id, lifecycle.Resolution{
		Discard:  req.Discard,
		Channel:  model.ProductStatus(req.Channel),
		Category: model.Category(req.Category),
	})
	if err != nil {
		h.respondError(w, err, "resolve donation")
		return
	}

	resp := resolveDonationResponse{Donation: toDonationResponse(*donation)}
	if product != nil {
		pr := toProductResponse(*product)
		resp.Product = &pr
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type personRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateDonor создаёт жертвователя.
func (h *Handler) CreateDonor(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateDonor(r.Context(), model.Donor{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.respondError(w, err, "create donor")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetDonors возвращает всех жертвователей.
func (h *Handler) GetDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := h.service.Donors(r.Context())
	if err != nil {
		h.respondError(w, err, "get donors")
		return
	}

	h.writeJSON(w, http.StatusOK, donors)
}

// CreateCustomer создаёт покупателя.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateCustomer(r.Context(), model.Customer{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.respondError(w, err, "create customer")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetCustomers возвращает всех покупателей.
func (h *Handler) GetCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.Customers(r.Context())
	if err != nil {
		h.respondError(w, err, "get customers")
		return
	}

	resp := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, toCustomerResponse(c))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type customerProfileRequest struct {
	Sizes       *model.SizeProfile `json:"sizes"`
	Preferences *model.Preferences `json:"preferences"`
}

// UpdateCustomerProfile обновляет размеры и предпочтения покупателя.
func (h *Handler) UpdateCustomerProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req customerProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateCustomerProfile(r.Context(), id, req.Sizes, req.Preferences); err != nil {
		h.respondError(w, err, "update customer profile")
		return
	}

	w.WriteHeader(http.StatusOK)
}

type checkoutItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type paymentItemRequest struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

type checkoutRequest struct {
	Items         []checkoutItemRequest `json:"items"`
	PaymentMethod string                `json:"payment_method"`
	Breakdown     []paymentItemRequest  `json:"payment_breakdown"`
	CustomerID    *int64                `json:"customer_id"`
	PartnerID     *int64                `json:"partner_id"`
	Commission    *float64              `json:"commission"`
}

type transactionResponse struct {
	ID              int64                `json:"id"`
	CreatedAt       string               `json:"created_at"`
	Type            string               `json:"type"`
	Amount          float64              `json:"amount"`
	Description     string               `json:"description"`
	PaymentMethod   string               `json:"payment_method,omitempty"`
	Breakdown       []paymentItemRequest `json:"payment_breakdown,omitempty"`
	PartnerID       *int64               `json:"partner_id,omitempty"`
	Commission      *float64             `json:"commission,omitempty"`
}

func toTransactionResponse(t model.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		Type:          string(t.Type),
		Amount:        centsToValue(t.AmountCents),
		Description:   t.Description,
		PaymentMethod: string(t.PaymentMethod),
		PartnerID:     t.PartnerID,
	}
	for _, item := range t.Breakdown {
		resp.Breakdown = append(resp.Breakdown, paymentItemRequest{
			Method: string(item.Method),
			Amount: centsToValue(item.AmountCents),
		})
	}
	if t.CommissionCents != nil {
		commission := centsToValue(*t.CommissionCents)
		resp.Commission = &commission
	}
	return resp
}

// Checkout проводит продажу на кассе.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !model.PaymentMethod(req.PaymentMethod).Valid() {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	for _, part := range req.Breakdown {
		if !model.PaymentMethod(part.Method).Valid() {
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
			return
		}
	}

	svcReq := service.CheckoutRequest{
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		CustomerID:    req.CustomerID,
		PartnerID:     req.PartnerID,
	}
	for _, item := range req.Items {
		svcReq.Items = append(svcReq.Items, service.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	for _, part := range req.Breakdown {
		svcReq.Breakdown = append(svcReq.Breakdown, model.PaymentItem{
			Method:      model.PaymentMethod(part.Method),
			AmountCents: valueToCents(part.Amount),
		})
	}
	if req.Commission != nil {
		commission := valueToCents(*req.Commission)
		svcReq.CommissionCents = &commission
	}

	tx, err := h.service.Checkout(r.Context(), svcReq)
	if err != nil {
		h.respondError(w, err, "checkout")
		return
	}

	h.writeJSON(w, http.StatusCreated, toTransactionResponse(*tx))
}

type expenseRequest struct {
	Tag         string  `json:"tag"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// RecordExpense добавляет расход в журнал операций.
func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.RecordExpense(r.Context(), req.Tag, req.Description, valueToCents(req.Amount))
	if err != nil {
		h.respondError(w, err, "record expense")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetTransactions возвращает журнал операций.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.service.Transactions(r.Context())
	if err != nil {
		h.respondError(w, err, "get transactions")
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, toTransactionResponse(t))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type summaryResponse struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// GetSummary возвращает итоги по журналу операций.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context())
	if err != nil {
		h.respondError(w, err, "get summary")
		return
	}

	h.writeJSON(w, http.StatusOK, summaryResponse{
		Income:  centsToValue(sum.IncomeCents),
		Expense: centsToValue(sum.ExpenseCents),
		Balance: centsToValue(sum.BalanceCents),
	})
}

type partnerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PixKey       string `json:"pix_key"`
	ReferralCode string `json:"referral_code"`
}

// CreatePartner создаёт партнёра.
func (h *Handler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreatePartner(r.Context(), model.Partner{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PixKey:       req.PixKey,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		h.respondError(w, err, "create partner")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type partnerResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	PixKey           string  `json:"pix_key,omitempty"`
	CommissionEarned float64 `json:"commission_earned"`
	TotalSalesCount  int     `json:"total_sales_count"`
	Status           string  `json:"status"`
	ReferralCode     string  `json:"referral_code,omitempty"`
}

// GetPartners возвращает всех партнёров.
func (h *Handler) GetPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.service.Partners(r.Context())
	if err != nil {
		h.respondError(w, err, "get partners")
		return
	}

	resp := make([]partnerResponse, 0, len(partners))
	for _, p := range partners {
		resp = append(resp, partnerResponse{
			ID:               p.ID,
			Name:             p.Name,
			Email:            p.Email,
			Phone:            p.Phone,
			PixKey:           p.PixKey,
			CommissionEarned: centsToValue(p.CommissionEarnedCents),
			TotalSalesCount:  p.TotalSalesCount,
			Status:           p.Status,
			ReferralCode:     p.ReferralCode,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type socialGoalRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Target      float64 `json:"target"`
	Current     float64 `json:"current"`
	IsActive    bool    `json:"is_active"`
}

// CreateSocialGoal создаёт социальную цель.
func (h *Handler) CreateSocialGoal(w http.ResponseWriter, r *http.Request) {
	var req socialGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateSocialGoal(r.Context(), model.SocialGoal{
		Title:        req.Title,
		Description:  req.Description,
		TargetCents:  valueToCents(req.Target),
		CurrentCents: valueToCents(req.Current),
		IsActive:     req.IsActive,
	})
	if err != nil {
		h.respondError(w, err, "create social goal")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetSocialGoals возвращает все социальные цели.
func (h *Handler) GetSocialGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.SocialGoals(r.Context())
	if err != nil {
		h.respondError(w, err, "get social goals")
		return
	}

	h.writeJSON(w, http.StatusOK, goals)
}

// ExportBackup выгружает полное состояние системы одним документом.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.service.ExportBackup(r.Context())
	if err != nil {
		h.respondError(w, err, "export backup")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=bazar-backup.json")
	h.writeJSON(w, http.StatusOK, backup)
}

// RestoreBackup замещает состояние системы содержимым резервной копии.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var backup model.Backup
	if err := json.NewDecoder(r.Body).Decode(&backup); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.RestoreBackup(r.Context(), &backup); err != nil {
		h.respondError(w, err, "restore backup")
		return
	}

	w.WriteHeader(http.StatusOK)
}
