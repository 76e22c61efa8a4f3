package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type demoQuery struct {
	Name        string `json:"name"`
	Dialect     string `json:"dialect"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

var demoQueries = []demoQuery{
	{
		Name:        "The N+1 Classic",
		Dialect:     "postgresql",
		Description: "Subquery in WHERE causing repeated scans",
		SQL: `SELECT *
FROM orders o
WHERE o.user_id IN (
    SELECT id FROM users
    WHERE created_at > '2024-01-01'
    AND country = 'US'
)
ORDER BY o.created_at DESC;`,
	},
	{
		Name:        "The SELECT * Monster",
		Dialect:     "bigquery",
		Description: "Multiple SELECT * with unnecessary JOIN",
		SQL: `SELECT *
FROM events e
JOIN users u ON e.user_id = u.id
JOIN products p ON e.product_id = p.id
JOIN sessions s ON e.session_id = s.id
WHERE e.event_type = 'purchase'
AND YEAR(e.created_at) = 2024
ORDER BY e.created_at DESC;`,
	},
	{
		Name:        "The Missing Index Trap",
		Dialect:     "postgresql",
		Description: "Aggregation on unindexed columns without partition",
		SQL: `SELECT
    customer_id,
    region,
    product_category,
    SUM(amount) AS total_revenue,
    COUNT(*) AS transaction_count,
    AVG(amount) AS avg_order_value
FROM transactions
WHERE status = 'completed'
AND created_at BETWEEN '2024-01-01' AND '2024-12-31'
GROUP BY customer_id, region, product_category
HAVING SUM(amount) > 1000
ORDER BY total_revenue DESC;`,
	},
	{
		Name:        "The Security Nightmare",
		Dialect:     "mysql",
		Description: "SQL injection vulnerable dynamic query",
		SQL: `SELECT id, username, email, password_hash, ssn, credit_card_number,
       address, phone, date_of_birth, salary
FROM users
WHERE username = '$username'
AND status != 'banned'
UNION SELECT * FROM admin_users WHERE '1'='1';`,
	},
	{
		Name:        "The Warehouse Cost Killer",
		Dialect:     "snowflake",
		Description: "Cartesian join with no filters scanning everything",
		SQL: `SELECT DISTINCT
    u.id, u.name, u.email, u.created_at, u.updated_at,
    o.id AS order_id, o.total, o.status, o.created_at AS order_date,
    p.name AS product_name, p.price, p.category, p.description,
    r.rating, r.review_text, r.created_at AS review_date
FROM users u, orders o, products p, reviews r
WHERE u.id = o.user_id
ORDER BY u.created_at DESC;`,
	},
}

func (s *Server) handleDemoQueries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queries": demoQueries})
}
