package integration_test

const (
	// User related constants, matching testdata/users_up.sql
	TestUserId      = 1
	TestUserEmail   = "customer@example.com"
	TestAdminUserId = 2
	TestAdminEmail  = "admin@example.com"

	// Total of movies one and two, the seeded cart and order content.
	TestCartTotalAmount = "15.49"

	// Payment related constants
	TestStripeWebhookSecret = "whsec_integration_secret"
)
