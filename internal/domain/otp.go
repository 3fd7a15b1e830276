package domain

import "time"

// OTPValidity is how long a password-reset code stays acceptable after creation.
const OTPValidity = 10 * time.Minute

// OTP is a single-use password-reset code.
// PK: otp_id, GSI: user_id-index. ExpiresAt doubles as the DynamoDB TTL attribute.
// Used flips to true exactly once, on consumption, and never back.
type OTP struct {
	OTPID     string    `json:"id" dynamodbav:"otp_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Code      string    `json:"code" dynamodbav:"code"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds
	Used      bool      `json:"used" dynamodbav:"used"`
}
