package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"autorenta/internal/db"
	"autorenta/internal/utils"
)

// NotifyService composes and delivers reservation updates to the customer
// by email and SMS. Delivery is asynchronous and best effort: the engine
// never blocks or fails a transition on a notification.
type NotifyService struct {
	Users UserStore
}

func NewNotifyService(users UserStore) *NotifyService {
	return &NotifyService{Users: users}
}

func (n *NotifyService) NotifyReservation(res *db.Reservation, event string) {
	code := res.Code
	customerID := res.CustomerID
	start := res.StartDate.Format(utils.DateLayout)
	end := res.EndDate.Format(utils.DateLayout)
	total := res.TotalPrice

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		user, err := n.Users.GetByID(ctx, customerID)
		if err != nil {
			log.Printf("notify: could not load customer for reservation %s: %v", code, err)
			return
		}

		subject := fmt.Sprintf("Your AutoRenta reservation %s is %s", code, event)
		body := fmt.Sprintf(
			"Hello %s,\n\nYour reservation %s is %s.\n\n"+
				"Pick-up: %s\nDrop-off: %s\nTotal: %d\n\n"+
				"Thank you for choosing AutoRenta.",
			user.Name, code, event, start, end, total,
		)
		if err := SendEmailWithSendGrid(user.Email, user.Name, subject, body); err != nil {
			log.Printf("notify: email for reservation %s failed: %v", code, err)
		}

		if user.Phone == "" {
			return
		}
		sms := fmt.Sprintf("AutoRenta: reservation %s is %s. Pick-up %s. Details in your email.", code, event, start)
		if err := SendSMS(user.Phone, sms); err != nil {
			log.Printf("notify: SMS for reservation %s failed: %v", code, err)
		}
	}()
}
