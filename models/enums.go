package models

import "errors"

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "Draft"
	InvoiceStatusSent    InvoiceStatus = "Sent"
	InvoiceStatusPartial InvoiceStatus = "Partial"
	InvoiceStatusPaid    InvoiceStatus = "Paid"

	// Display-only: derived from due date at read time, never stored.
	InvoiceStatusOverdue InvoiceStatus = "Overdue"
)

func (s *InvoiceStatus) Parse(str string) error {
	switch str {
	case "Draft":
		*s = InvoiceStatusDraft
	case "Sent":
		*s = InvoiceStatusSent
	case "Partial":
		*s = InvoiceStatusPartial
	case "Paid":
		*s = InvoiceStatusPaid
	default:
		return errors.New("invalid invoice status")
	}
	return nil
}

type BillStatus string

const (
	BillStatusOpen    BillStatus = "Open"
	BillStatusPartial BillStatus = "Partial"
	BillStatusPaid    BillStatus = "Paid"
)

func (s *BillStatus) Parse(str string) error {
	switch str {
	case "Open":
		*s = BillStatusOpen
	case "Partial":
		*s = BillStatusPartial
	case "Paid":
		*s = BillStatusPaid
	default:
		return errors.New("invalid bill status")
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodCheck        PaymentMethod = "Check"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodCard         PaymentMethod = "Card"
	PaymentMethodOther        PaymentMethod = "Other"
)

func (m *PaymentMethod) Parse(str string) error {
	switch str {
	case "Cash":
		*m = PaymentMethodCash
	case "Check":
		*m = PaymentMethodCheck
	case "BankTransfer":
		*m = PaymentMethodBankTransfer
	case "Card":
		*m = PaymentMethodCard
	case "Other":
		*m = PaymentMethodOther
	default:
		return errors.New("invalid payment method")
	}
	return nil
}

type ExpenseCategory string

const (
	ExpenseCategoryTravel    ExpenseCategory = "Travel"
	ExpenseCategoryMeals     ExpenseCategory = "Meals"
	ExpenseCategorySupplies  ExpenseCategory = "Supplies"
	ExpenseCategoryUtilities ExpenseCategory = "Utilities"
	ExpenseCategoryRent      ExpenseCategory = "Rent"
	ExpenseCategoryOther     ExpenseCategory = "Other"
)
