package database

// SQLiteSchema mirrors the Postgres models for local runs and tests.
// Keep it in sync with the gorm tags in models/.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS "users" (
		"id" TEXT PRIMARY KEY,
		"email" TEXT NOT NULL UNIQUE,
		"password" TEXT NOT NULL,
		"name" TEXT,
		"role" TEXT DEFAULT 'customer',
		"phone" TEXT,
		"birth_date" DATE,
		"is_blocked" INTEGER DEFAULT 0,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS "loyalty_records" (
		"customer_id" TEXT PRIMARY KEY,
		"balance" INTEGER NOT NULL DEFAULT 0,
		"reviews_rewarded" INTEGER NOT NULL DEFAULT 0,
		"referrals_rewarded" INTEGER NOT NULL DEFAULT 0,
		"last_birthday_reward_year" INTEGER,
		"created_at" DATETIME,
		"updated_at" DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS "loyalty_histories" (
		"id" TEXT PRIMARY KEY,
		"customer_id" TEXT NOT NULL,
		"points" INTEGER NOT NULL,
		"type" TEXT NOT NULL,
		"reason" TEXT NOT NULL,
		"token" TEXT,
		"order_id" TEXT,
		"created_at" DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS "idx_loyalty_histories_customer_id" ON "loyalty_histories"("customer_id")`,
	`CREATE UNIQUE INDEX IF NOT EXISTS "idx_loyalty_histories_customer_token" ON "loyalty_histories"("customer_id", "token")`,
	`CREATE TABLE IF NOT EXISTS "loyalty_items_tried" (
		"customer_id" TEXT NOT NULL,
		"item_id" TEXT NOT NULL,
		"created_at" DATETIME,
		PRIMARY KEY ("customer_id", "item_id")
	)`,
	`CREATE TABLE IF NOT EXISTS "orders" (
		"id" TEXT PRIMARY KEY,
		"customer_id" TEXT NOT NULL,
		"order_number" TEXT NOT NULL UNIQUE,
		"status" TEXT NOT NULL DEFAULT 'pending',
		"subtotal" NUMERIC NOT NULL,
		"discount" NUMERIC NOT NULL DEFAULT 0,
		"total" NUMERIC NOT NULL,
		"points_applied" INTEGER NOT NULL DEFAULT 0,
		"points_committed" INTEGER NOT NULL DEFAULT 0,
		"cancellation_reason" TEXT,
		"created_at" DATETIME,
		"updated_at" DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS "idx_orders_customer_id" ON "orders"("customer_id")`,
	`CREATE TABLE IF NOT EXISTS "order_items" (
		"id" TEXT PRIMARY KEY,
		"order_id" TEXT NOT NULL,
		"item_id" TEXT NOT NULL,
		"name" TEXT,
		"image_url" TEXT,
		"quantity" INTEGER NOT NULL,
		"price" NUMERIC NOT NULL,
		"created_at" DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS "order_timeline_entries" (
		"id" TEXT PRIMARY KEY,
		"order_id" TEXT NOT NULL,
		"seq" INTEGER NOT NULL,
		"status" TEXT NOT NULL,
		"reason" TEXT,
		"created_at" DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS "idx_order_timeline_seq" ON "order_timeline_entries"("order_id", "seq")`,
	`CREATE TABLE IF NOT EXISTS "reservations" (
		"id" TEXT PRIMARY KEY,
		"customer_id" TEXT NOT NULL,
		"party_size" INTEGER NOT NULL,
		"reserved_for" DATETIME NOT NULL,
		"notes" TEXT,
		"status" TEXT NOT NULL DEFAULT 'upcoming',
		"cancellation_reason" TEXT,
		"created_at" DATETIME,
		"updated_at" DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS "reservation_timeline_entries" (
		"id" TEXT PRIMARY KEY,
		"reservation_id" TEXT NOT NULL,
		"seq" INTEGER NOT NULL,
		"status" TEXT NOT NULL,
		"reason" TEXT,
		"created_at" DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS "idx_reservation_timeline_seq" ON "reservation_timeline_entries"("reservation_id", "seq")`,
	`CREATE TABLE IF NOT EXISTS "notifications" (
		"id" TEXT PRIMARY KEY,
		"recipient_id" TEXT,
		"is_global" INTEGER DEFAULT 0,
		"type" TEXT NOT NULL,
		"title" TEXT NOT NULL,
		"body" TEXT,
		"link" TEXT,
		"payload" TEXT,
		"is_read" INTEGER DEFAULT 0,
		"created_at" DATETIME
	)`,
}
