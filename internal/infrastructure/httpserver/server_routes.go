package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.Auth.Authenticate())

	auth := api.Group("/auth")
	auth.GET("/ping", s.ping)
	auth.POST("/sign-up", s.signUp, s.middleware.RateLimit.Handler())
	auth.POST("/sign-in", s.signIn, s.middleware.RateLimit.Handler())
	auth.POST("/forgot", s.forgotPassword, s.middleware.RateLimit.Handler())
	auth.POST("/reset", s.resetPassword, s.middleware.RateLimit.Handler())
	auth.GET("/confirm", s.confirmEmail)
	auth.POST("/resend-verification", s.resendVerification, s.middleware.RateLimit.Handler())

	protected := api.Group("", s.middleware.Auth.RequireUser())
	protected.GET("/users/me", s.getOwnProfile)
}
