package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	auth     *service.AuthService
	sessions *SessionRegistry
	carts    *service.CartService
	catalog  *service.CatalogService
	orders   *service.OrderService
	settings *service.SettingsService
	log      *zap.Logger
}

func NewHandler(
	auth *service.AuthService,
	sessions *SessionRegistry,
	carts *service.CartService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	settings *service.SettingsService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		auth:     auth,
		sessions: sessions,
		carts:    carts,
		catalog:  catalog,
		orders:   orders,
		settings: settings,
		log:      log,
	}
}

// Routes собирает маршруты API. Идентичность из bearer-токена кладётся
// в контекст на входе, роль проверяется точечно.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("POST /api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("GET /api/auth/session", h.handleSession)
	mux.HandleFunc("POST /api/auth/password-reset/request", h.handlePasswordResetRequest)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", h.handlePasswordResetConfirm)
	mux.HandleFunc("POST /api/auth/password", requireBearer(h.handleUpdatePassword))
	mux.HandleFunc("POST /api/auth/profile", requireBearer(h.handleUpdateProfile))

	mux.HandleFunc("GET /api/categories", h.handleListCategories)
	mux.HandleFunc("GET /api/products", h.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /api/products/{id}/related", h.handleRelatedProducts)
	mux.HandleFunc("GET /api/collections", h.handleListCollections)
	mux.HandleFunc("GET /api/collections/{id}", h.handleGetCollection)
	mux.HandleFunc("GET /api/collections/{id}/products", h.handleCollectionProducts)
	mux.HandleFunc("GET /api/settings", h.handleGetSettings)

	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("GET /api/cart/summary", h.handleCartSummary)
	mux.HandleFunc("POST /api/cart/items", h.handleAddToCart)
	mux.HandleFunc("PUT /api/cart/items", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.handleRemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.handleClearCart)

	mux.HandleFunc("POST /api/checkout", h.handleCheckout)

	mux.HandleFunc("GET /api/orders", requireBearer(h.handleListOrders))
	mux.HandleFunc("GET /api/orders/{id}", requireBearer(h.handleGetOrder))

	mux.HandleFunc("POST /api/admin/login", h.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/logout", h.handleAdminLogout)
	mux.HandleFunc("GET /api/admin/session", h.handleAdminSession)

	mux.HandleFunc("POST /api/admin/products", requireAdminRole(h.handleCreateProduct))
	mux.HandleFunc("PATCH /api/admin/products/{id}", requireAdminRole(h.handleUpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}", requireAdminRole(h.handleDeleteProduct))
	mux.HandleFunc("POST /api/admin/products/image", requireAdminRole(h.handleUploadProductImage))

	mux.HandleFunc("POST /api/admin/categories", requireAdminRole(h.handleCreateCategory))
	mux.HandleFunc("PATCH /api/admin/categories/{id}", requireAdminRole(h.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/admin/categories/{id}", requireAdminRole(h.handleDeleteCategory))

	mux.HandleFunc("POST /api/admin/collections", requireAdminRole(h.handleCreateCollection))
	mux.HandleFunc("PATCH /api/admin/collections/{id}", requireAdminRole(h.handleUpdateCollection))
	mux.HandleFunc("DELETE /api/admin/collections/{id}", requireAdminRole(h.handleDeleteCollection))
	mux.HandleFunc("PUT /api/admin/collections/{id}/products", requireAdminRole(h.handleSetCollectionProducts))

	mux.HandleFunc("GET /api/admin/orders", requireAdminRole(h.handleListOrders))
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", requireAdminRole(h.handleUpdateOrderStatus))

	mux.HandleFunc("PUT /api/admin/settings", requireAdminRole(h.handleUpdateSettings))

	return withAuth(h.auth, h.log)(mux)
}

// --- ответы и ошибки ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenNotFoundOrRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidOrExpiredCode),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrQuantityInvalid),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// --- auth ---

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	u, err := as.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    u.ID,
		"email": u.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

func toTokenResponse(p service.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt.Unix(),
		RefreshToken:     p.RefreshOpaque,
		RefreshExpiresAt: p.RefreshExpiresAt.Unix(),
	}
}

func principalJSON(p *service.Principal) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"email":        p.Email,
		"display_name": p.DisplayName,
		"role":         p.Role,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	p, pair, err := as.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   principalJSON(p),
		"tokens": toTokenResponse(pair),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	if err := as.SignOut(r.Context()); err != nil {
		h.log.Debug("sign-out finished with error", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	pair, err := as.RefreshSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

// handleSession — состояние аутентификации сессии; дожидается стартовой
// проверки, поэтому сразу после рестарта не врёт "не залогинен".
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	ok, err := as.IsAuthenticated(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"authenticated": ok}
	if p := as.Principal(); p != nil {
		resp["user"] = principalJSON(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	// ответ не выдаёт, существует ли аккаунт
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil &&
		!errors.Is(err, service.ErrNotFound) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	if err := h.auth.ConfirmPasswordReset(r.Context(), req.Code, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	if err := as.UpdatePassword(r.Context(), req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	p, err := as.UpdateProfile(r.Context(), req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": principalJSON(p)})
}

// --- каталог ---

func productJSON(p *models.Product) map[string]any {
	out := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price_cents": p.PriceCents,
		"image_url":   p.ImageURL,
		"is_active":   p.IsActive,
		"created_at":  p.CreatedAt,
	}
	if p.Sizes != "" {
		out["sizes"] = strings.Split(p.Sizes, ",")
	} else {
		out["sizes"] = []string{}
	}
	if p.Category != nil {
		out["category"] = map[string]any{
			"id":   p.Category.ID,
			"name": p.Category.Name,
			"slug": p.Category.Slug,
		}
	}
	return out
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	role, _ := service.RoleFromContext(r.Context())

	res, err := h.catalog.ListProducts(r.Context(), service.ProductQuery{
		CategorySlug: q.Get("category"),
		Search:       q.Get("q"),
		Sort:         q.Get("sort"),
		Desc:         q.Get("dir") == "desc",
		Page:         page,
		PageSize:     size,
		IncludeAll:   role == models.RoleAdmin && q.Get("all") == "true",
	})
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(res.Products))
	for i := range res.Products {
		items = append(items, productJSON(&res.Products[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":  items,
		"total":     res.Total,
		"page":      res.Page,
		"page_size": res.PageSize,
	})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrProductNotFound)
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if role, _ := service.RoleFromContext(r.Context()); !p.IsActive && role != models.RoleAdmin {
		writeError(w, service.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, productJSON(p))
}

func (h *Handler) handleRelatedProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrProductNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.catalog.RelatedProducts(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for i := range list {
		items = append(items, productJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": items})
}

func collectionJSON(c *models.Collection) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"name":          c.Name,
		"description":   c.Description,
		"image_url":     c.ImageURL,
		"display_order": c.DisplayOrder,
		"is_active":     c.IsActive,
		"created_at":    c.CreatedAt,
	}
}

func (h *Handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	role, _ := service.RoleFromContext(r.Context())
	includeAll := role == models.RoleAdmin && r.URL.Query().Get("all") == "true"

	list, err := h.catalog.ListCollections(r.Context(), includeAll)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for i := range list {
		items = append(items, collectionJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": items})
}

func (h *Handler) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCollectionNotFound)
		return
	}
	c, err := h.catalog.GetCollection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if role, _ := service.RoleFromContext(r.Context()); !c.IsActive && role != models.RoleAdmin {
		writeError(w, service.ErrCollectionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, collectionJSON(c))
}

func (h *Handler) handleCollectionProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCollectionNotFound)
		return
	}
	role, _ := service.RoleFromContext(r.Context())

	list, err := h.catalog.CollectionProducts(r.Context(), id, role == models.RoleAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for i := range list {
		items = append(items, productJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": items})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get(r.Context()))
}

// --- корзина ---

func cartJSON(c session.Cart) map[string]any {
	items := make([]map[string]any, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, map[string]any{
			"product_id":       it.ProductID,
			"name":             it.Name,
			"unit_price_cents": it.UnitPriceCents,
			"image_url":        it.ImageURL,
			"quantity":         it.Quantity,
			"size":             it.Size,
		})
	}
	return map[string]any{
		"items":       items,
		"count":       c.Count(),
		"total_cents": c.TotalCents(),
	}
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	writeJSON(w, http.StatusOK, cartJSON(h.carts.Cart(r.Context(), key)))
}

func (h *Handler) handleCartSummary(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	t := h.carts.Summary(r.Context(), key)
	writeJSON(w, http.StatusOK, map[string]any{
		"subtotal_cents": t.SubtotalCents,
		"shipping_cents": t.ShippingCents,
		"tax_cents":      t.TaxCents,
		"total_cents":    t.TotalCents,
	})
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsActive {
		writeError(w, service.ErrProductNotFound)
		return
	}

	key := sessionKey(w, r)
	if err := h.carts.AddToCart(r.Context(), key, service.CartProduct{
		ID:         p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		ImageURL:   p.ImageURL,
	}, req.Quantity, req.Size); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartJSON(h.carts.Cart(r.Context(), key)))
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	key := sessionKey(w, r)
	h.carts.UpdateQuantity(r.Context(), key, req.ProductID, req.Quantity, req.Size)
	writeJSON(w, http.StatusOK, cartJSON(h.carts.Cart(r.Context(), key)))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "productID")
	if err != nil {
		writeError(w, service.ErrProductNotFound)
		return
	}

	key := sessionKey(w, r)
	h.carts.RemoveFromCart(r.Context(), key, id, r.URL.Query().Get("size"))
	writeJSON(w, http.StatusOK, cartJSON(h.carts.Cart(r.Context(), key)))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	h.carts.Clear(r.Context(), key)
	writeJSON(w, http.StatusOK, cartJSON(session.Cart{}))
}

// --- оформление ---

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	as := h.sessions.Session(key, storedRefresh(r))

	res := h.orders.Checkout(r.Context(), as, key)

	resp := map[string]any{"state": res.State}
	if res.RedirectToLogin {
		resp["redirect_to_login"] = true
	}
	if res.Order != nil {
		resp["order"] = orderJSON(res.Order)
	}
	if res.Err != nil {
		resp["error"] = res.Err.Error()
		writeJSON(w, statusOf(res.Err), resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- заказы ---

func orderJSON(o *models.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id":       it.ProductID,
			"quantity":         it.Quantity,
			"unit_price_cents": it.UnitPriceCents,
			"size":             it.Size,
		})
	}
	return map[string]any{
		"id":                o.ID,
		"user_id":           o.UserID,
		"status":            o.Status,
		"total_price_cents": o.TotalPriceCents,
		"items":             items,
		"created_at":        o.CreatedAt,
	}
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	f := service.OrderListFilter{Limit: limit, Offset: offset}
	if s := q.Get("status"); s != "" {
		st := models.OrderStatus(s)
		if !models.ValidOrderStatus(st) {
			writeError(w, service.ErrInvalidStatus)
			return
		}
		f.Status = &st
	}

	list, total, err := h.orders.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for _, o := range list {
		items = append(items, orderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": items, "total": total})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrOrderNotFound)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderJSON(o))
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrOrderNotFound)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	o, err := h.orders.UpdateOrderStatus(r.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderJSON(o))
}

// --- админка ---

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	key := sessionKey(w, r)
	admin := h.sessions.AdminSession(key, storedRefresh(r))

	p, pair, err := admin.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   principalJSON(p),
		"tokens": toTokenResponse(pair),
	})
}

func (h *Handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	admin := h.sessions.AdminSession(key, storedRefresh(r))

	if err := admin.SignOut(r.Context()); err != nil {
		h.log.Debug("admin sign-out finished with error", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	admin := h.sessions.AdminSession(key, storedRefresh(r))

	resp := map[string]any{"is_admin": admin.IsAdmin()}
	if p := admin.CurrentAdmin(); p != nil {
		resp["user"] = principalJSON(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

type productRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents"`
	ImageURL    string     `json:"image_url"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Sizes       []string   `json:"sizes"`
	IsActive    bool       `json:"is_active"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Sizes:       req.Sizes,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, productJSON(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrProductNotFound)
		return
	}

	var req map[string]any
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	fields := productUpdateFields(req)

	p, err := h.catalog.UpdateProduct(r.Context(), id, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productJSON(p))
}

// productUpdateFields пропускает только известные колонки.
func productUpdateFields(req map[string]any) map[string]any {
	allowed := map[string]string{
		"name":        "name",
		"description": "description",
		"price_cents": "price_cents",
		"image_url":   "image_url",
		"category_id": "category_id",
		"is_active":   "is_active",
	}
	fields := make(map[string]any)
	for k, col := range allowed {
		if v, ok := req[k]; ok {
			fields[col] = v
		}
	}
	if v, ok := req["sizes"].([]any); ok {
		parts := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				parts = append(parts, str)
			}
		}
		fields["sizes"] = strings.Join(parts, ",")
	}
	return fields
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrProductNotFound)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const maxUploadBytes = 10 << 20 // 10 MiB

func (h *Handler) handleUploadProductImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	defer file.Close()

	url, err := h.catalog.UploadProductImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

type categoryRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"image_url"`
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), req.Name, req.Slug, req.ImageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCategoryNotFound)
		return
	}

	var req map[string]any
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	allowed := map[string]struct{}{"name": {}, "slug": {}, "image_url": {}}
	fields := make(map[string]any)
	for k, v := range req {
		if _, ok := allowed[k]; ok {
			fields[k] = v
		}
	}

	c, err := h.catalog.UpdateCategory(r.Context(), id, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCategoryNotFound)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type collectionRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

func (h *Handler) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	c, err := h.catalog.CreateCollection(r.Context(), service.CollectionInput{
		Name:         req.Name,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		DisplayOrder: req.DisplayOrder,
		IsActive:     req.IsActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionJSON(c))
}

func (h *Handler) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCollectionNotFound)
		return
	}

	var req map[string]any
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	allowed := map[string]struct{}{
		"name": {}, "description": {}, "image_url": {}, "display_order": {}, "is_active": {},
	}
	fields := make(map[string]any)
	for k, v := range req {
		if _, ok := allowed[k]; ok {
			fields[k] = v
		}
	}

	c, err := h.catalog.UpdateCollection(r.Context(), id, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionJSON(c))
}

func (h *Handler) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCollectionNotFound)
		return
	}
	if err := h.catalog.DeleteCollection(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetCollectionProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, service.ErrCollectionNotFound)
		return
	}

	var req struct {
		ProductIDs []uuid.UUID `json:"product_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}

	if err := h.catalog.SetCollectionProducts(r.Context(), id, req.ProductIDs); err != nil {
		writeError(w, err)
		return
	}

	list, err := h.catalog.CollectionProducts(r.Context(), id, true)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for i := range list {
		items = append(items, productJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": items})
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	if err := h.settings.Update(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.settings.Get(r.Context()))
}
