package smtp

import (
	"bytes"
	"html/template"
)

const otpTemplateHTML = `<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 24px;">
    <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
      <h2 style="color: #333333; margin-top: 0;">Password Reset</h2>
      <p style="color: #555555;">Use the code below to reset your password. It expires in 10 minutes.</p>
      <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #222222; text-align: center;">{{.OTP}}</p>
      <p style="color: #999999; font-size: 12px;">If you didn't request this, you can ignore this email.</p>
    </div>
  </body>
</html>`

var otpTemplate = template.Must(template.New("otp").Parse(otpTemplateHTML))

func renderOTPTemplate(code string) (string, error) {
	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, struct{ OTP string }{OTP: code}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
