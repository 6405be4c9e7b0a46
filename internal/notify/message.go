// Package notify отправляет уведомления покупателям и магазинам через
// WhatsApp Cloud API и Firebase Cloud Messaging.
package notify

import (
	"context"
	"fmt"

	"github.com/mmeshcher/creditbook/internal/money"
)

// Channel канал доставки уведомления.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
)

// Message уведомление одному получателю. Для WhatsApp To это номер в формате E.164,
// для push это токен устройства FCM.
type Message struct {
	Channel  Channel
	To       string
	Title    string
	Body     string
	Template string
	Params   []string
	Data     map[string]string
}

// Sender отправляет уведомление по одному каналу.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Шаблоны WhatsApp, заведённые в бизнес-аккаунте.
const (
	TemplateLoginOTP        = "login_otp"
	TemplateCreditAdded     = "credit_added"
	TemplatePaymentRecorded = "payment_recorded"
	TemplatePreDueReminder  = "pre_due_reminder"
	TemplateOverdueReminder = "overdue_reminder"
	TemplateManualReminder  = "manual_reminder"
)

func rupees(minor int64) string {
	return "₹" + money.Format(minor)
}

// OTPMessage код подтверждения, действующий ttlMinutes минут.
func OTPMessage(phone, code string, ttlMinutes int) Message {
	return Message{
		Channel:  ChannelWhatsApp,
		To:       phone,
		Title:    "Verification code",
		Body:     fmt.Sprintf("Your Patt Book verification code is %s. It expires in %d minutes.", code, ttlMinutes),
		Template: TemplateLoginOTP,
		Params:   []string{code, fmt.Sprint(ttlMinutes)},
	}
}

// CreditAddedMessage уведомление покупателя о новой записи в долг.
func CreditAddedMessage(phone, customerName, shopName string, amount, outstanding int64) Message {
	return Message{
		Channel: ChannelWhatsApp,
		To:      phone,
		Title:   shopName,
		Body: fmt.Sprintf("Hello %s, %s added a credit of %s. Total outstanding: %s.",
			customerName, shopName, rupees(amount), rupees(outstanding)),
		Template: TemplateCreditAdded,
		Params:   []string{customerName, shopName, money.Format(amount), money.Format(outstanding)},
		Data:     map[string]string{"type": "credit", "amount": money.Format(amount), "outstanding": money.Format(outstanding)},
	}
}

// PaymentRecordedMessage уведомление покупателя о принятой оплате.
func PaymentRecordedMessage(phone, customerName, shopName string, amount, outstanding int64) Message {
	return Message{
		Channel: ChannelWhatsApp,
		To:      phone,
		Title:   shopName,
		Body: fmt.Sprintf("Hello %s, %s received your payment of %s. Remaining balance: %s.",
			customerName, shopName, rupees(amount), rupees(outstanding)),
		Template: TemplatePaymentRecorded,
		Params:   []string{customerName, money.Format(amount), shopName, money.Format(outstanding)},
		Data:     map[string]string{"type": "payment", "amount": money.Format(amount), "outstanding": money.Format(outstanding)},
	}
}

// PreDueReminderMessage напоминание о приближающемся сроке оплаты.
func PreDueReminderMessage(phone, customerName, shopName string, outstanding int64, dueDate string) Message {
	return Message{
		Channel: ChannelWhatsApp,
		To:      phone,
		Title:   shopName,
		Body: fmt.Sprintf("Hello %s, a friendly reminder from %s: %s is due on %s.",
			customerName, shopName, rupees(outstanding), dueDate),
		Template: TemplatePreDueReminder,
		Params:   []string{customerName, shopName, money.Format(outstanding), dueDate},
	}
}

// OverdueReminderMessage напоминание о просроченной оплате.
func OverdueReminderMessage(phone, customerName, shopName string, outstanding int64, dueDate string, daysOverdue int) Message {
	return Message{
		Channel: ChannelWhatsApp,
		To:      phone,
		Title:   shopName,
		Body: fmt.Sprintf("Hello %s, your balance of %s at %s was due on %s (%d days overdue).",
			customerName, rupees(outstanding), shopName, dueDate, daysOverdue),
		Template: TemplateOverdueReminder,
		Params:   []string{customerName, money.Format(outstanding), shopName, dueDate, fmt.Sprint(daysOverdue)},
	}
}

// ManualReminderMessage напоминание, отправленное магазином вручную.
func ManualReminderMessage(phone, customerName, shopName string, outstanding int64) Message {
	return Message{
		Channel: ChannelWhatsApp,
		To:      phone,
		Title:   shopName,
		Body: fmt.Sprintf("Hello %s, this is a friendly reminder from %s. Your current outstanding balance is %s.",
			customerName, shopName, rupees(outstanding)),
		Template: TemplateManualReminder,
		Params:   []string{customerName, shopName, money.Format(outstanding)},
	}
}

// AsPush копирует уведомление для доставки на устройство с токеном token.
func (m Message) AsPush(token string) Message {
	push := m
	push.Channel = ChannelPush
	push.To = token
	push.Template = ""
	push.Params = nil
	return push
}
