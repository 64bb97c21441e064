package http

import (
	"testing"
)

func validInput() FeatureInput {
	return FeatureInput{
		Age: 63, Sex: 1, CP: 3, Trestbps: 145, Chol: 233, FBS: 1,
		Restecg: 0, Thalach: 150, Exang: 0, Oldpeak: 2.3, Slope: 0,
		CA: 0, Thal: 1,
	}
}

func TestFeatureInputValidate(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*FeatureInput)
	}{
		{"age too high", func(f *FeatureInput) { f.Age = 200 }},
		{"age zero", func(f *FeatureInput) { f.Age = 0 }},
		{"sex out of range", func(f *FeatureInput) { f.Sex = 2 }},
		{"cp out of range", func(f *FeatureInput) { f.CP = 4 }},
		{"negative oldpeak", func(f *FeatureInput) { f.Oldpeak = -1 }},
		{"ca out of range", func(f *FeatureInput) { f.CA = 5 }},
		{"thal out of range", func(f *FeatureInput) { f.Thal = 9 }},
	}
	for _, tc := range cases {
		input := validInput()
		tc.mutate(&input)
		if err := input.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestFeatureInputVectorOrder(t *testing.T) {
	vector := validInput().Vector()
	expected := []float64{63, 1, 3, 145, 233, 1, 0, 150, 0, 2.3, 0, 0, 1}
	if len(vector) != len(expected) {
		t.Fatalf("expected %d features, got %d", len(expected), len(vector))
	}
	for i := range expected {
		if vector[i] != expected[i] {
			t.Fatalf("feature %d: expected %v, got %v", i, expected[i], vector[i])
		}
	}
}

func TestUserRequestValidate(t *testing.T) {
	valid := UserRequest{Email: "ok@example.com", Password: "pass1234", Category: "patient"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	invalid := []UserRequest{
		{Email: "nope", Password: "pass1234"},
		{Email: "ok@example.com", Password: "abc"},
		{Email: "ok@example.com", Password: "pass1234", Category: "admin"},
	}
	for i, request := range invalid {
		if err := request.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestPatientRequestValidate(t *testing.T) {
	valid := PatientRequest{
		UserRequest: UserRequest{Email: "ok@example.com", Password: "pass1234"},
		Age:         42,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	tooOld := valid
	tooOld.Age = 130
	if err := tooOld.Validate(); err == nil {
		t.Fatal("expected error for age out of range")
	}

	badGuardian := valid
	badGuardian.GuardianEmail = "broken"
	if err := badGuardian.Validate(); err == nil {
		t.Fatal("expected error for invalid guardian email")
	}
}
