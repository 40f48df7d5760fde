package domain

import "testing"

func TestGuardPredicates(t *testing.T) {
	cases := []struct {
		payment   PaymentStatus
		refund    RefundStatus
		canPay    bool
		canCancel bool
		canReopen bool
		canRefund bool
		canSettle bool
	}{
		{PaymentPending, RefundNone, true, true, false, false, false},
		{PaymentPaid, RefundNone, false, true, false, true, false},
		{PaymentPaid, RefundRequested, false, true, false, false, false},
		{PaymentPaid, RefundProcessing, false, false, false, false, true},
		{PaymentPaid, RefundRejected, false, true, false, true, false},
		{PaymentCanceled, RefundNone, false, false, true, false, false},
		{PaymentCanceled, RefundProcessing, false, false, true, false, false},
		{PaymentRefunded, RefundRefunded, false, false, false, false, false},
	}

	for _, c := range cases {
		o := Order{PaymentStatus: c.payment, RefundStatus: c.refund}
		name := string(c.payment) + "/" + string(c.refund)
		if got := o.CanPay(); got != c.canPay {
			t.Errorf("%s: CanPay = %v", name, got)
		}
		if got := o.CanCancel(); got != c.canCancel {
			t.Errorf("%s: CanCancel = %v", name, got)
		}
		if got := o.CanReopen(); got != c.canReopen {
			t.Errorf("%s: CanReopen = %v", name, got)
		}
		if got := o.CanStartRefund(); got != c.canRefund {
			t.Errorf("%s: CanStartRefund = %v", name, got)
		}
		if got := o.CanSettleRefund(); got != c.canSettle {
			t.Errorf("%s: CanSettleRefund = %v", name, got)
		}
	}
}

func TestStatusValidation(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentPending, PaymentPaid, PaymentCanceled, PaymentRefunded} {
		if !ValidPaymentStatus(s) {
			t.Errorf("%s rejected", s)
		}
	}
	if ValidPaymentStatus("EXPIRED") {
		t.Error("unknown payment status accepted")
	}
	if !ValidRefundStatus(RefundNone) {
		t.Error("empty refund status is the none state and must be valid")
	}
	if ValidRefundStatus("partial") {
		t.Error("unknown refund status accepted")
	}
}
