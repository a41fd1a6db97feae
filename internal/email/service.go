package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendCheckoutConfirmation confirms a completed checkout
func (s *Service) SendCheckoutConfirmation(to, cartID string, items []RentalItem) error {
	shortID := cartID
	if len(cartID) > 8 {
		shortID = cartID[:8]
	}
	subject := fmt.Sprintf("Your rental order is on its way (order %s)", shortID)
	body := BuildCheckoutConfirmationBody(cartID, items)
	return s.send(to, subject, body)
}

// SendDeliveryNotice tells a member their rental arrived and billing starts
func (s *Service) SendDeliveryNotice(to string, items []RentalItem) error {
	subject := "Your rental has been delivered"
	body := BuildDeliveryNoticeBody(items)
	return s.send(to, subject, body)
}

// SendReturnReceived confirms the warehouse got a returned unit back
func (s *Service) SendReturnReceived(to, productName string) error {
	subject := "We received your return"
	body := BuildReturnReceivedBody(productName)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
