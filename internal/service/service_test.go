package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/bazar-system/internal/catalog"
	"github.com/mmeshcher/bazar-system/internal/lifecycle"
	"github.com/mmeshcher/bazar-system/internal/model"
	"github.com/mmeshcher/bazar-system/internal/repository"
)

// stubRepo хранит состояние в памяти для тестов сервиса.
type stubRepo struct {
	users         []model.User
	institution   *model.Institution
	donors        []model.Donor
	customers     []model.Customer
	products      []model.Product
	donations     []model.Donation
	transactions  []model.Transaction
	partners      []model.Partner
	goals         []model.SocialGoal
	notifications []model.Notification

	saleItems []repository.SaleItem
	restored  *model.Backup
}

func (r *stubRepo) CreateUser(_ context.Context, login string, hash []byte, name, role string) (int64, error) {
	for _, u := range r.users {
		if u.Login == login {
			return 0, repository.ErrUserExists
		}
	}
	id := int64(len(r.users) + 1)
	r.users = append(r.users, model.User{ID: id, Login: login, PasswordHash: hash, Name: name, Role: role})
	return id, nil
}

func (r *stubRepo) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	for i := range r.users {
		if r.users[i].Login == login {
			return &r.users[i], nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *stubRepo) ListUsers(_ context.Context) ([]model.User, error) { return r.users, nil }

func (r *stubRepo) GetInstitution(_ context.Context) (*model.Institution, error) {
	if r.institution == nil {
		return nil, repository.ErrInstitutionNotRegistered
	}
	return r.institution, nil
}

func (r *stubRepo) SaveInstitution(_ context.Context, inst model.Institution) error {
	r.institution = &inst
	return nil
}

func (r *stubRepo) CreateDonor(_ context.Context, d model.Donor) (int64, error) {
	d.ID = int64(len(r.donors) + 1)
	r.donors = append(r.donors, d)
	return d.ID, nil
}

func (r *stubRepo) ListDonors(_ context.Context) ([]model.Donor, error) { return r.donors, nil }

func (r *stubRepo) CreateCustomer(_ context.Context, c model.Customer) (int64, error) {
	c.ID = int64(len(r.customers) + 1)
	r.customers = append(r.customers, c)
	return c.ID, nil
}

func (r *stubRepo) ListCustomers(_ context.Context) ([]model.Customer, error) {
	return r.customers, nil
}

func (r *stubRepo) GetCustomer(_ context.Context, id int64) (*model.Customer, error) {
	for i := range r.customers {
		if r.customers[i].ID == id {
			return &r.customers[i], nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (r *stubRepo) UpdateCustomerProfile(_ context.Context, id int64, sizes *model.SizeProfile, prefs *model.Preferences) error {
	for i := range r.customers {
		if r.customers[i].ID == id {
			r.customers[i].Sizes = sizes
			r.customers[i].Preferences = prefs
			return nil
		}
	}
	return repository.ErrCustomerNotFound
}

func (r *stubRepo) CreateProduct(_ context.Context, p model.Product) (int64, error) {
	p.ID = int64(len(r.products) + 1)
	r.products = append(r.products, p)
	return p.ID, nil
}

func (r *stubRepo) ListProducts(_ context.Context) ([]model.Product, error) { return r.products, nil }

func (r *stubRepo) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	for i := range r.products {
		if r.products[i].ID == id {
			return &r.products[i], nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (r *stubRepo) DeleteProduct(_ context.Context, id int64) error {
	for i := range r.products {
		if r.products[i].ID == id {
			r.products = append(r.products[:i], r.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (r *stubRepo) CreateDonation(_ context.Context, d model.Donation) (int64, error) {
	d.ID = int64(len(r.donations) + 1)
	d.Status = model.DonationStatusTriage
	r.donations = append(r.donations, d)
	return d.ID, nil
}

func (r *stubRepo) ListDonations(_ context.Context) ([]model.Donation, error) {
	return r.donations, nil
}

func (r *stubRepo) GetDonation(_ context.Context, id int64) (*model.Donation, error) {
	for i := range r.donations {
		if r.donations[i].ID == id {
			return &r.donations[i], nil
		}
	}
	return nil, repository.ErrDonationNotFound
}

func (r *stubRepo) ResolveDonation(_ context.Context, donation model.Donation, product *model.Product) (int64, error) {
	for i := range r.donations {
		if r.donations[i].ID == donation.ID {
			if r.donations[i].Status != model.DonationStatusTriage {
				return 0, repository.ErrDonationAlreadyResolved
			}
			r.donations[i].Status = donation.Status

			var productID int64
			if product != nil {
				p := *product
				p.ID = int64(len(r.products) + 1)
				r.products = append(r.products, p)
				productID = p.ID
			}

			if donation.DonorID != nil {
				for j := range r.donors {
					if r.donors[j].ID == *donation.DonorID {
						r.donors[j].TotalDonations++
					}
				}
			}
			return productID, nil
		}
	}
	return 0, repository.ErrDonationNotFound
}

func (r *stubRepo) CreateSale(_ context.Context, items []repository.SaleItem, t model.Transaction, customerID *int64) (int64, error) {
	for _, item := range items {
		for i := range r.products {
			if r.products[i].ID == item.ProductID {
				if r.products[i].Stock < item.Quantity {
					return 0, repository.ErrInsufficientStock
				}
				r.products[i].Stock -= item.Quantity
				r.products[i].Status = model.NextStatusAfterSale(r.products[i].Stock, r.products[i].Status)
			}
		}
	}
	r.saleItems = append(r.saleItems, items...)

	t.ID = int64(len(r.transactions) + 1)
	r.transactions = append(r.transactions, t)

	if customerID != nil {
		for i := range r.customers {
			if r.customers[i].ID == *customerID {
				r.customers[i].TotalSpentCents += t.AmountCents
			}
		}
	}
	return t.ID, nil
}

func (r *stubRepo) CreateTransaction(_ context.Context, t model.Transaction) (int64, error) {
	t.ID = int64(len(r.transactions) + 1)
	r.transactions = append(r.transactions, t)
	return t.ID, nil
}

func (r *stubRepo) ListTransactions(_ context.Context) ([]model.Transaction, error) {
	return r.transactions, nil
}

func (r *stubRepo) CreatePartner(_ context.Context, p model.Partner) (int64, error) {
	p.ID = int64(len(r.partners) + 1)
	r.partners = append(r.partners, p)
	return p.ID, nil
}

func (r *stubRepo) ListPartners(_ context.Context) ([]model.Partner, error) { return r.partners, nil }

func (r *stubRepo) CreateSocialGoal(_ context.Context, g model.SocialGoal) (int64, error) {
	g.ID = int64(len(r.goals) + 1)
	r.goals = append(r.goals, g)
	return g.ID, nil
}

func (r *stubRepo) ListSocialGoals(_ context.Context) ([]model.SocialGoal, error) {
	return r.goals, nil
}

func (r *stubRepo) CreateNotifications(_ context.Context, ns []model.Notification) error {
	r.notifications = append(r.notifications, ns...)
	return nil
}

func (r *stubRepo) GetPendingNotifications(_ context.Context, limit int) ([]model.Notification, error) {
	if len(r.notifications) > limit {
		return r.notifications[:limit], nil
	}
	return r.notifications, nil
}

func (r *stubRepo) MarkNotificationSent(_ context.Context, id int64) error {
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].Status = model.NotificationStatusSent
		}
	}
	return nil
}

func (r *stubRepo) Restore(_ context.Context, b *model.Backup) error {
	r.restored = b
	return nil
}

func newTestService(repo *stubRepo) *BazarService {
	return NewBazarService(repo, nil, zap.NewNop())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	id, err := svc.RegisterUser(ctx, "maria", "segredo", "Maria", "Manager")
	if err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}

	user, err := svc.AuthenticateUser(ctx, "maria", "segredo")
	if err != nil {
		t.Fatalf("AuthenticateUser error: %v", err)
	}
	if user.Name != "Maria" || user.Role != "Manager" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.AuthenticateUser(ctx, "maria", "errado"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.AuthenticateUser(ctx, "joao", "segredo"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown login error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterUser_EmptyCredentials(t *testing.T) {
	svc := newTestService(&stubRepo{})

	if _, err := svc.RegisterUser(context.Background(), "", "x", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.RegisterUser(context.Background(), "x", "", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestAddProduct_GeneratesSequentialCode(t *testing.T) {
	repo := &stubRepo{
		products: []model.Product{
			{ID: 1, Code: "R01", Category: model.CategoryClothing},
			{ID: 2, Code: "R02", Category: model.CategoryClothing},
		},
	}
	svc := newTestService(repo)

	p, matches, err := svc.AddProduct(context.Background(), model.Product{
		Name:     "Vestido floral",
		Category: model.CategoryClothing,
	})
	if err != nil {
		t.Fatalf("AddProduct error: %v", err)
	}
	if p.Code != "R03" {
		t.Fatalf("code = %q, want R03", p.Code)
	}
	if p.Stock != 1 {
		t.Fatalf("stock = %d, want 1", p.Stock)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0", len(matches))
	}
}

func TestAddProduct_QueuesMatchNotifications(t *testing.T) {
	repo := &stubRepo{
		customers: []model.Customer{
			{
				ID:    1,
				Name:  "Ana",
				Phone: "(11) 91234-5678",
				Sizes: &model.SizeProfile{Shirt: "M"},
				Preferences: &model.Preferences{
					Categories: []model.Category{model.CategoryClothing},
				},
			},
			{ID: 2, Name: "Bruno", Phone: "11999990000"},
		},
	}
	svc := newTestService(repo)

	_, matches, err := svc.AddProduct(context.Background(), model.Product{
		Name:     "Camisa social",
		Category: model.CategoryClothing,
		Size:     "M",
	})
	if err != nil {
		t.Fatalf("AddProduct error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != 1 {
		t.Fatalf("matches = %+v, want only Ana", matches)
	}
	if len(repo.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(repo.notifications))
	}

	n := repo.notifications[0]
	if n.Phone != "11912345678" {
		t.Fatalf("phone = %q, want digits only", n.Phone)
	}
	if !strings.Contains(n.Message, "Ana") || !strings.Contains(n.Message, "Camisa social") {
		t.Fatalf("unexpected message: %q", n.Message)
	}
	if !strings.Contains(n.Message, "(Tam: M)") {
		t.Fatalf("message lacks size: %q", n.Message)
	}
}

func TestAddProduct_RejectsNegativeInput(t *testing.T) {
	svc := newTestService(&stubRepo{})

	_, _, err := svc.AddProduct(context.Background(), model.Product{
		Name:     "Camisa",
		Category: model.CategoryClothing,
		Stock:    -1,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative stock error = %v, want ErrInvalidInput", err)
	}

	_, _, err = svc.AddProduct(context.Background(), model.Product{
		Name:       "Camisa",
		Category:   model.CategoryClothing,
		PriceCents: -100,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative price error = %v, want ErrInvalidInput", err)
	}
}

func TestAddProduct_UnknownCategory(t *testing.T) {
	svc := newTestService(&stubRepo{})

	_, _, err := svc.AddProduct(context.Background(), model.Product{
		Name:     "Coisa",
		Category: model.Category("Misc"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestResolveDonation_ToStock(t *testing.T) {
	donorID := int64(1)
	repo := &stubRepo{
		donors: []model.Donor{
			{ID: 1, Name: "Carlos"},
		},
		donations: []model.Donation{
			{ID: 7, DonorID: &donorID, Status: model.DonationStatusTriage, ItemsDescription: "caixa de roupas", EstimatedValueCents: 4500},
		},
	}
	svc := newTestService(repo)

	donation, product, err := svc.ResolveDonation(context.Background(), 7, lifecycle.Resolution{
		Channel: model.ProductStatusBazar,
	})
	if err != nil {
		t.Fatalf("ResolveDonation error: %v", err)
	}
	if donation.Status != model.DonationStatusStock {
		t.Fatalf("donation status = %s, want Stock", donation.Status)
	}
	if product == nil {
		t.Fatalf("expected synthesized product")
	}
	if product.Code != "O01" {
		t.Fatalf("code = %q, want O01", product.Code)
	}
	if product.Status != model.ProductStatusBazar {
		t.Fatalf("product status = %s, want Bazar", product.Status)
	}
	if product.PriceCents != 4500 {
		t.Fatalf("price = %d, want 4500", product.PriceCents)
	}
	if product.ID == 0 {
		t.Fatalf("product id not assigned")
	}
	if len(repo.products) != 1 {
		t.Fatalf("products stored = %d, want 1", len(repo.products))
	}
	if repo.donors[0].TotalDonations != 1 {
		t.Fatalf("donor counter = %d, want 1", repo.donors[0].TotalDonations)
	}
}

func TestResolveDonation_Discard(t *testing.T) {
	donorID := int64(1)
	repo := &stubRepo{
		donors: []model.Donor{
			{ID: 1, Name: "Carlos"},
		},
		donations: []model.Donation{
			{ID: 3, DonorID: &donorID, Status: model.DonationStatusTriage, ItemsDescription: "itens danificados"},
		},
	}
	svc := newTestService(repo)

	donation, product, err := svc.ResolveDonation(context.Background(), 3, lifecycle.Resolution{Discard: true})
	if err != nil {
		t.Fatalf("ResolveDonation error: %v", err)
	}
	if donation.Status != model.DonationStatusDiscarded {
		t.Fatalf("status = %s, want Discarded", donation.Status)
	}
	if product != nil {
		t.Fatalf("unexpected product for discarded donation")
	}
	if len(repo.products) != 0 {
		t.Fatalf("products stored = %d, want 0", len(repo.products))
	}
	if repo.donors[0].TotalDonations != 1 {
		t.Fatalf("donor counter = %d, want 1", repo.donors[0].TotalDonations)
	}
}

func TestResolveDonation_AnonymousSkipsDonorCounter(t *testing.T) {
	repo := &stubRepo{
		donors: []model.Donor{
			{ID: 1, Name: "Carlos"},
		},
		donations: []model.Donation{
			{ID: 2, Status: model.DonationStatusTriage, ItemsDescription: "sacola anônima"},
		},
	}
	svc := newTestService(repo)

	_, _, err := svc.ResolveDonation(context.Background(), 2, lifecycle.Resolution{Channel: model.ProductStatusStock})
	if err != nil {
		t.Fatalf("ResolveDonation error: %v", err)
	}
	if repo.donors[0].TotalDonations != 0 {
		t.Fatalf("donor counter = %d, want 0", repo.donors[0].TotalDonations)
	}
}

func TestResolveDonation_AlreadyResolved(t *testing.T) {
	repo := &stubRepo{
		donations: []model.Donation{
			{ID: 5, Status: model.DonationStatusStock, ItemsDescription: "já processada"},
		},
	}
	svc := newTestService(repo)

	_, _, err := svc.ResolveDonation(context.Background(), 5, lifecycle.Resolution{Channel: model.ProductStatusStock})
	if !errors.Is(err, lifecycle.ErrAlreadyResolved) {
		t.Fatalf("error = %v, want ErrAlreadyResolved", err)
	}
}

func TestResolveDonation_UnknownCategoryOverride(t *testing.T) {
	repo := &stubRepo{
		donations: []model.Donation{
			{ID: 1, Status: model.DonationStatusTriage, ItemsDescription: "caixa"},
		},
	}
	svc := newTestService(repo)

	_, _, err := svc.ResolveDonation(context.Background(), 1, lifecycle.Resolution{
		Channel:  model.ProductStatusStock,
		Category: model.Category("Misc"),
	})
	if !errors.Is(err, catalog.ErrUnknownCategory) {
		t.Fatalf("error = %v, want ErrUnknownCategory", err)
	}
}

func TestCheckout_TotalAndDescription(t *testing.T) {
	repo := &stubRepo{
		products: []model.Product{
			{ID: 1, Code: "R01", Name: "Camisa", Category: model.CategoryClothing, PriceCents: 2500, Stock: 2, Status: model.ProductStatusBazar},
			{ID: 2, Code: "C01", Name: "Tênis", Category: model.CategoryFootwear, PriceCents: 8000, Stock: 1, Status: model.ProductStatusBazar},
		},
	}
	svc := newTestService(repo)

	tx, err := svc.Checkout(context.Background(), CheckoutRequest{
		Items: []CheckoutItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		PaymentMethod: model.PaymentCash,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if tx.AmountCents != 13000 {
		t.Fatalf("amount = %d, want 13000", tx.AmountCents)
	}
	if tx.Description != "Venda (Cash) de 3 itens" {
		t.Fatalf("description = %q", tx.Description)
	}
	if tx.Type != model.TransactionIncome {
		t.Fatalf("type = %s, want Income", tx.Type)
	}
	if repo.products[0].Stock != 0 {
		t.Fatalf("stock = %d, want 0", repo.products[0].Stock)
	}
	if repo.products[0].Status != model.ProductStatusSold {
		t.Fatalf("status = %s, want Sold", repo.products[0].Status)
	}
	if repo.products[1].Status != model.ProductStatusSold {
		t.Fatalf("status = %s, want Sold", repo.products[1].Status)
	}
}

func TestCheckout_PartialStockKeepsStatus(t *testing.T) {
	repo := &stubRepo{
		products: []model.Product{
			{ID: 1, Code: "R01", Name: "Camisa", Category: model.CategoryClothing, PriceCents: 2500, Stock: 3, Status: model.ProductStatusOnline},
		},
	}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: 1, Quantity: 2}},
		PaymentMethod: model.PaymentCard,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if repo.products[0].Stock != 1 {
		t.Fatalf("stock = %d, want 1", repo.products[0].Stock)
	}
	if repo.products[0].Status != model.ProductStatusOnline {
		t.Fatalf("status = %s, want Online", repo.products[0].Status)
	}
}

func TestCheckout_SplitValidation(t *testing.T) {
	repo := &stubRepo{
		products: []model.Product{
			{ID: 1, PriceCents: 10000, Stock: 1, Status: model.ProductStatusBazar},
		},
	}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: model.PaymentSplit,
		Breakdown: []model.PaymentItem{
			{Method: model.PaymentCash, AmountCents: 4000},
			{Method: model.PaymentPIX, AmountCents: 5000},
		},
	})
	if !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("error = %v, want ErrInvalidPayment", err)
	}

	tx, err := svc.Checkout(context.Background(), CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: model.PaymentSplit,
		Breakdown: []model.PaymentItem{
			{Method: model.PaymentCash, AmountCents: 4000},
			{Method: model.PaymentPIX, AmountCents: 6000},
		},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if len(tx.Breakdown) != 2 {
		t.Fatalf("breakdown lost: %+v", tx.Breakdown)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := newTestService(&stubRepo{})

	_, err := svc.Checkout(context.Background(), CheckoutRequest{PaymentMethod: model.PaymentCash})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("error = %v, want ErrEmptyCart", err)
	}
}

func TestCheckout_CustomerSpendAccumulated(t *testing.T) {
	customerID := int64(1)
	repo := &stubRepo{
		products:  []model.Product{{ID: 1, PriceCents: 3000, Stock: 1, Status: model.ProductStatusBazar}},
		customers: []model.Customer{{ID: 1, Name: "Ana"}},
	}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: model.PaymentPIX,
		CustomerID:    &customerID,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if repo.customers[0].TotalSpentCents != 3000 {
		t.Fatalf("total spent = %d, want 3000", repo.customers[0].TotalSpentCents)
	}
}

func TestRecordExpense_TagPrefix(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	if _, err := svc.RecordExpense(context.Background(), "Aluguel", "loja de outubro", 150000); err != nil {
		t.Fatalf("RecordExpense error: %v", err)
	}
	if got := repo.transactions[0].Description; got != "[Aluguel] loja de outubro" {
		t.Fatalf("description = %q", got)
	}
	if repo.transactions[0].Type != model.TransactionExpense {
		t.Fatalf("type = %s, want Expense", repo.transactions[0].Type)
	}

	if _, err := svc.RecordExpense(context.Background(), "", "sem categoria", 100); err != nil {
		t.Fatalf("RecordExpense error: %v", err)
	}
	if got := repo.transactions[1].Description; got != "sem categoria" {
		t.Fatalf("description = %q", got)
	}
}

func TestSummary(t *testing.T) {
	repo := &stubRepo{
		transactions: []model.Transaction{
			{Type: model.TransactionIncome, AmountCents: 10000},
			{Type: model.TransactionIncome, AmountCents: 5000},
			{Type: model.TransactionExpense, AmountCents: 3000},
		},
	}
	svc := newTestService(repo)

	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if sum.IncomeCents != 15000 || sum.ExpenseCents != 3000 || sum.BalanceCents != 12000 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRestoreBackup_RequiresInstitution(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	err := svc.RestoreBackup(context.Background(), &model.Backup{})
	if !errors.Is(err, ErrInvalidBackup) {
		t.Fatalf("error = %v, want ErrInvalidBackup", err)
	}
	if repo.restored != nil {
		t.Fatalf("restore must not run for invalid backup")
	}

	err = svc.RestoreBackup(context.Background(), &model.Backup{
		Institution: &model.Institution{Name: "Casa de Apoio"},
	})
	if err != nil {
		t.Fatalf("RestoreBackup error: %v", err)
	}
	if repo.restored == nil {
		t.Fatalf("restore not invoked")
	}
}

func TestExportBackup(t *testing.T) {
	repo := &stubRepo{
		institution: &model.Institution{Name: "Casa de Apoio"},
		products:    []model.Product{{ID: 1, Code: "O01", Category: model.CategoryOther}},
		customers:   []model.Customer{{ID: 1, Name: "Ana"}},
	}
	svc := newTestService(repo)

	b, err := svc.ExportBackup(context.Background())
	if err != nil {
		t.Fatalf("ExportBackup error: %v", err)
	}
	if b.Institution == nil || b.Institution.Name != "Casa de Apoio" {
		t.Fatalf("institution missing: %+v", b.Institution)
	}
	if len(b.Products) != 1 || len(b.Customers) != 1 {
		t.Fatalf("collections missing: %+v", b)
	}
}

func TestExportBackup_NotRegistered(t *testing.T) {
	svc := newTestService(&stubRepo{})

	_, err := svc.ExportBackup(context.Background())
	if !errors.Is(err, repository.ErrInstitutionNotRegistered) {
		t.Fatalf("error = %v, want ErrInstitutionNotRegistered", err)
	}
}
