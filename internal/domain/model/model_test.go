package model

import "testing"

func TestBatchStatusValues(t *testing.T) {
	cases := []struct {
		name  string
		got   BatchStatus
		value string
	}{
		{"active", BatchStatusActive, "ACTIVE"},
		{"exhausted", BatchStatusExhausted, "EXHAUSTED"},
		{"expired", BatchStatusExpired, "EXPIRED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if string(tc.got) != tc.value {
				t.Fatalf("expected %s, got %s", tc.value, tc.got)
			}
		})
	}
}

func TestTransactionKindValues(t *testing.T) {
	cases := []struct {
		kind  TransactionKind
		value string
	}{
		{TransactionKindEarn, "EARN"},
		{TransactionKindUse, "USE"},
		{TransactionKindExpire, "EXPIRE"},
		{TransactionKindAdjust, "ADJUST"},
	}

	for _, tc := range cases {
		if string(tc.kind) != tc.value {
			t.Fatalf("expected %s, got %s", tc.value, tc.kind)
		}
	}
}

func TestTierChangeReasonValues(t *testing.T) {
	if string(TierChangeReasonAutoUpgrade) != "AUTO_UPGRADE" {
		t.Fatalf("unexpected auto upgrade reason: %s", TierChangeReasonAutoUpgrade)
	}
	if string(TierChangeReasonManual) != "MANUAL" {
		t.Fatalf("unexpected manual reason: %s", TierChangeReasonManual)
	}
}
