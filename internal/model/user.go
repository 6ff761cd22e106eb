package model

import "time"

// Roles carried in the JWT "role" claim.
const (
    RoleCustomer = "CUSTOMER"
    RoleOperator = "OPERATOR"
)

// User represents an application user record as stored in the
// `users` table.  Customers book and pay for reservations; operators
// manage parking lots.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (lower-cased).
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER or OPERATOR.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
