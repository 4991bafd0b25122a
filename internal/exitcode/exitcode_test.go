package exitcode

import "testing"

func TestNameAndDescription(t *testing.T) {
	tests := []struct {
		code Code
		name string
	}{
		{Success, "SUCCESS"},
		{ValidationReferential, "VALIDATION_REFERENTIAL"},
		{ManualIntervention, "MANUAL_INTERVENTION"},
		{Code(99), "UNKNOWN"},
		{Code(-1), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := Name(tt.code); got != tt.name {
			t.Errorf("Name(%d) = %q, want %q", tt.code, got, tt.name)
		}
		if tt.name != "UNKNOWN" && Description(tt.code) == "" {
			t.Errorf("Description(%d) is empty", tt.code)
		}
	}
}

func TestIsValidationError(t *testing.T) {
	for code := ValidationSchema; code <= ValidationStateMachine; code++ {
		if !IsValidationError(code) {
			t.Errorf("IsValidationError(%d) = false, want true", code)
		}
	}
	for _, code := range []Code{Success, General, InvalidArguments, LockTimeout} {
		if IsValidationError(code) {
			t.Errorf("IsValidationError(%d) = true, want false", code)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	for _, code := range []Code{LockTimeout, Timeout, RateLimited, ExternalService} {
		if !IsRetryable(code) {
			t.Errorf("IsRetryable(%d) = false, want true", code)
		}
	}
	if IsRetryable(ValidationSchema) {
		t.Error("IsRetryable(ValidationSchema) = true, want false")
	}
}

func TestRequiresIntervention(t *testing.T) {
	for _, code := range []Code{Permission, Hallucination, ManualIntervention} {
		if !RequiresIntervention(code) {
			t.Errorf("RequiresIntervention(%d) = false, want true", code)
		}
	}
	if RequiresIntervention(Timeout) {
		t.Error("RequiresIntervention(Timeout) = true, want false")
	}
}

func TestNewFailureRejectsSuccess(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when constructing a failure with Success code")
		}
	}()
	NewFailure(Success, "bad", nil)
}

func TestNewSuccess(t *testing.T) {
	r := NewSuccess("ok", nil)
	if r.Code != Success {
		t.Errorf("Code = %d, want Success", r.Code)
	}
}
