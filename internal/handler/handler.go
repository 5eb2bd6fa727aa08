package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shop_service/internal/config"
	"shop_service/internal/models"
	"shop_service/internal/service"
)

const serverErrorMessage = "Server failed, Please try again later"

type Handler struct {
	serviceLayer service.Service
	cfg          *config.Config
	log          *slog.Logger
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, response{Success: false, Message: errMessage})
}

func NewHandler(srvc service.Service, cfg *config.Config, lgr *slog.Logger) *Handler {
	return &Handler{
		serviceLayer: srvc,
		cfg:          cfg,
		log:          lgr,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	router.Static("/api/uploads", h.cfg.Upload.Dir)

	api := router.Group("/api")
	{
		public := api.Group("/", APIKeyMiddleware(h.cfg.Auth.APIKey))
		{
			// route name kept as-is for existing clients
			public.POST("/creatUser", h.CreateUser)
			public.POST("/login", h.Login)
			public.POST("/sendOTP", h.SendOTP)
			public.POST("/verifyOTP", h.VerifyOTP)
			public.POST("/createProduct", h.CreateProduct)
			public.POST("/createCategory", h.CreateCategory)
			public.GET("/products", h.ListProducts)
			public.GET("/categories", h.ListCategories)
			public.POST("/uploadImage", h.UploadImage)
		}

		authed := api.Group("/", h.AuthMiddleware())
		{
			authed.POST("/logout", h.Logout)
			authed.POST("/createCarts", h.UpsertCart)
			authed.GET("/carts", h.GetCart)
			authed.DELETE("/carts/:productId", h.RemoveCartLine)
		}

		api.GET("/check-token", h.CheckToken)
	}

	return router
}

type createUserRequest struct {
	Firstname   string `json:"firstname" binding:"required"`
	Lastname    string `json:"lastname" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email" binding:"required,email"`
	Gender      string `json:"gender"`
	Country     string `json:"country"`
	Province    string `json:"province"`
	Address     string `json:"address"`
	Password    string `json:"password" binding:"required,min=8"`
}

// POST /api/creatUser
func (h *Handler) CreateUser(c *gin.Context) {
	const op = "handler.CreateUser"

	log := h.log.With(slog.String("op", op))

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	user, err := h.serviceLayer.RegisterUser(c.Request.Context(), service.RegisterInput{
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Gender:      req.Gender,
		Country:     req.Country,
		Province:    req.Province,
		Address:     req.Address,
		Password:    req.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			newErrorResponse(c, http.StatusConflict, "Email is already in used")

			return
		}

		log.Error("failed to create user", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	log.Info("user registered", slog.String("email", user.Email))

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "Inserted success Please login",
		Data:    user,
	})
}

// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	token, _, err := h.serviceLayer.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			newErrorResponse(c, http.StatusNotFound, "Can not find your email, Please check")

			return
		}
		if errors.Is(err, models.ErrInvalidPassword) {
			newErrorResponse(c, http.StatusBadRequest, "Invalid password")

			return
		}

		log.Error("failed to login", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.SetCookie("token", token, int(h.cfg.Auth.TokenTTL.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "Logged in successfully",
		Data:    gin.H{"token": token},
	})
}

// POST /api/logout
func (h *Handler) Logout(c *gin.Context) {
	const op = "handler.Logout"

	log := h.log.With(slog.String("op", op))

	tokenStr := c.GetString(ctxToken)

	if err := h.serviceLayer.Logout(c.Request.Context(), tokenStr); err != nil {
		log.Error("failed to revoke token", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.SetCookie("token", "", -1, "/", "", false, true)

	log.Info("user logout", slog.String("email", c.GetString(ctxEmail)))

	c.JSON(http.StatusOK, response{Success: true, Message: "Logout"})
}

// GET /api/check-token
func (h *Handler) CheckToken(c *gin.Context) {
	tokenStr, err := c.Cookie("token")
	if err != nil || tokenStr == "" {
		newErrorResponse(c, http.StatusNotFound, "Token not found, Please login")

		return
	}

	claims, err := h.serviceLayer.ValidateToken(c.Request.Context(), tokenStr)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})

		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": claims})
}

// POST /api/sendOTP
func (h *Handler) SendOTP(c *gin.Context) {
	const op = "handler.SendOTP"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Email string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	if _, err := h.serviceLayer.SendOTP(c.Request.Context(), req.Email); err != nil {
		log.Error("failed to issue otp", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "OTP has been sent to your email",
	})
}

// POST /api/verifyOTP
func (h *Handler) VerifyOTP(c *gin.Context) {
	const op = "handler.VerifyOTP"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  int    `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	if err := h.serviceLayer.VerifyOTP(c.Request.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrOTPNotFound):
			newErrorResponse(c, http.StatusBadRequest, "Invalid or already used code")
		case errors.Is(err, models.ErrOTPExpired):
			newErrorResponse(c, http.StatusBadRequest, "Code expired, Please request a new one")
		case errors.Is(err, models.ErrUserNotFound):
			newErrorResponse(c, http.StatusNotFound, "Can not find your email, Please check")
		default:
			log.Error("failed to verify otp", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)
		}

		return
	}

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "Your email has been verified",
	})
}

type createProductRequest struct {
	Name        string  `json:"product_name" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
	Stocks      int     `json:"stocks" binding:"gte=0"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	CategoryID  string  `json:"category_id"`
}

// POST /api/createProduct
func (h *Handler) CreateProduct(c *gin.Context) {
	const op = "handler.CreateProduct"

	log := h.log.With(slog.String("op", op))

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	product, err := h.serviceLayer.CreateProduct(c.Request.Context(), models.Product{
		Name:        req.Name,
		Price:       req.Price,
		Stocks:      req.Stocks,
		Image:       req.Image,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		log.Error("failed to create product", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "Inserted product successfully",
		Data:    product,
	})
}

// GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	const op = "handler.ListProducts"

	log := h.log.With(slog.String("op", op))

	products, err := h.serviceLayer.ListProducts(c.Request.Context())
	if err != nil {
		log.Error("failed to list products", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: products})
}

// POST /api/createCategory
func (h *Handler) CreateCategory(c *gin.Context) {
	const op = "handler.CreateCategory"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Name        string `json:"category_name" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	category, err := h.serviceLayer.CreateCategory(c.Request.Context(), models.Category{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		log.Error("failed to create category", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: category})
}

// GET /api/categories
func (h *Handler) ListCategories(c *gin.Context) {
	const op = "handler.ListCategories"

	log := h.log.With(slog.String("op", op))

	categories, err := h.serviceLayer.ListCategories(c.Request.Context())
	if err != nil {
		log.Error("failed to list categories", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: categories})
}

type cartLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// POST /api/createCarts
func (h *Handler) UpsertCart(c *gin.Context) {
	const op = "handler.UpsertCart"

	log := h.log.With(slog.String("op", op))

	userID := c.GetString(ctxUserID)

	var req []cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		newErrorResponse(c, http.StatusBadRequest, "Required field is missing. Please provide all necessary input.")

		return
	}

	lines := make([]models.CartLine, 0, len(req))
	for _, item := range req {
		lines = append(lines, models.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	summary, err := h.serviceLayer.UpsertCart(c.Request.Context(), userID, lines)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidQuantity):
			newErrorResponse(c, http.StatusBadRequest, "Quantity must be at least 1")
		case errors.Is(err, models.ErrVersionConflict):
			newErrorResponse(c, http.StatusConflict, "Cart is being updated, please retry")
		default:
			log.Error("failed to upsert cart", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)
		}

		return
	}

	message := "Cart updated"
	if summary.Created {
		message = "Cart created"
	}

	c.JSON(http.StatusOK, response{Success: true, Message: message, Data: summary})
}

// GET /api/carts
func (h *Handler) GetCart(c *gin.Context) {
	const op = "handler.GetCart"

	log := h.log.With(slog.String("op", op))

	userID := c.GetString(ctxUserID)

	cart, err := h.serviceLayer.GetCart(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrCartNotFound) {
			newErrorResponse(c, http.StatusNotFound, "Cart not found")

			return
		}

		log.Error("failed to get cart", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: cart})
}

// DELETE /api/carts/:productId
func (h *Handler) RemoveCartLine(c *gin.Context) {
	const op = "handler.RemoveCartLine"

	log := h.log.With(slog.String("op", op))

	userID := c.GetString(ctxUserID)
	productID := c.Param("productId")

	if err := h.serviceLayer.RemoveCartLine(c.Request.Context(), userID, productID); err != nil {
		switch {
		case errors.Is(err, models.ErrCartNotFound):
			newErrorResponse(c, http.StatusNotFound, "Cart not found")
		case errors.Is(err, models.ErrVersionConflict):
			newErrorResponse(c, http.StatusConflict, "Cart is being updated, please retry")
		default:
			log.Error("failed to remove cart line", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)
		}

		return
	}

	c.JSON(http.StatusOK, response{Success: true, Message: "Item removed"})
}

// POST /api/uploadImage
func (h *Handler) UploadImage(c *gin.Context) {
	const op = "handler.UploadImage"

	log := h.log.With(slog.String("op", op))

	file, err := c.FormFile("image")
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Unable to upload your photo. Please try again")

		return
	}

	filename := uuid.New().String() + filepath.Ext(file.Filename)

	if err := c.SaveUploadedFile(file, filepath.Join(h.cfg.Upload.Dir, filename)); err != nil {
		log.Error("failed to save uploaded file", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, serverErrorMessage)

		return
	}

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "Your photo has been uploaded successfully",
		Data:    gin.H{"filename": filename},
	})
}
