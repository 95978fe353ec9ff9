package zipdemographics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	zipdemographics "github.com/apiverve/zipdemographics-api"
)

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

var _ = Describe("Validate", func() {
	var zipRules zipdemographics.RuleSet

	BeforeEach(func() {
		zipRules = zipdemographics.RuleSet{
			"zip": {Type: "string", Required: true, MinLength: intPtr(5), MaxLength: intPtr(5)},
		}
	})

	Describe("required parameters", func() {
		It("emits exactly one missing violation and skips the other checks", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{}, zipRules)
			Expect(violations).To(ConsistOf("Required parameter [zip] is missing"))
		})

		It("treats an empty string as absent", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"zip": ""}, zipRules)
			Expect(violations).To(ConsistOf("Required parameter [zip] is missing"))
		})

		It("treats a nil value as absent", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"zip": nil}, zipRules)
			Expect(violations).To(ConsistOf("Required parameter [zip] is missing"))
		})

		It("accepts a nil bag when nothing is required", func() {
			rules := zipdemographics.RuleSet{
				"limit": {Type: "integer"},
			}
			Expect(zipdemographics.Validate(nil, rules)).To(BeEmpty())
		})
	})

	Describe("string length bounds", func() {
		It("rejects a 4 character zip", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"zip": "9021"}, zipRules)
			Expect(violations).To(ConsistOf("Parameter [zip] must be at least 5 characters"))
		})

		It("accepts a 5 character zip", func() {
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"zip": "90210"}, zipRules)).To(BeEmpty())
		})

		It("rejects a 6 character zip", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"zip": "902100"}, zipRules)
			Expect(violations).To(ConsistOf("Parameter [zip] must be at most 5 characters"))
		})

		It("rejects a non-string and skips the length checks", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"zip": 90210}, zipRules)
			Expect(violations).To(ConsistOf("Parameter [zip] must be a valid string"))
		})
	})

	Describe("numeric bounds", func() {
		rules := zipdemographics.RuleSet{
			"radius": {Type: "number", Min: floatPtr(10), Max: floatPtr(5)},
		}

		It("emits separate violations when both min and max fail", func() {
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"radius": 7}, rules)
			Expect(violations).To(ConsistOf(
				"Parameter [radius] must be at least 10",
				"Parameter [radius] must be at most 5",
			))
		})

		It("coerces numeric strings", func() {
			rules := zipdemographics.RuleSet{
				"limit": {Type: "integer", Min: floatPtr(1), Max: floatPtr(100)},
			}
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"limit": "50"}, rules)).To(BeEmpty())
		})

		It("rejects a non-numeric value and skips the bound checks", func() {
			rules := zipdemographics.RuleSet{
				"limit": {Type: "integer", Min: floatPtr(1)},
			}
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"limit": "many"}, rules)
			Expect(violations).To(ConsistOf("Parameter [limit] must be a valid integer"))
		})

		It("rejects a fractional value for an integer rule", func() {
			rules := zipdemographics.RuleSet{
				"limit": {Type: "integer"},
			}
			violations := zipdemographics.Validate(zipdemographics.ParameterBag{"limit": 2.5}, rules)
			Expect(violations).To(ConsistOf("Parameter [limit] must be a valid integer"))
		})
	})

	Describe("boolean and array types", func() {
		It("accepts booleans and their literal string forms", func() {
			rules := zipdemographics.RuleSet{
				"verbose": {Type: "boolean"},
			}
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"verbose": true}, rules)).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"verbose": "false"}, rules)).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"verbose": "yes"}, rules)).
				To(ConsistOf("Parameter [verbose] must be a valid boolean"))
		})

		It("accepts sequences for array rules", func() {
			rules := zipdemographics.RuleSet{
				"fields": {Type: "array"},
			}
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"fields": []string{"a", "b"}}, rules)).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"fields": "a,b"}, rules)).
				To(ConsistOf("Parameter [fields] must be a valid array"))
		})
	})

	Describe("formats", func() {
		formatRules := func(format string) zipdemographics.RuleSet {
			return zipdemographics.RuleSet{
				"value": {Type: "string", Format: format},
			}
		}

		It("validates email addresses", func() {
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "a@b.co"}, formatRules("email"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "not-an-email"}, formatRules("email"))).
				To(ConsistOf("Parameter [value] must be a valid email"))
		})

		It("validates URLs", func() {
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "https://example.com"}, formatRules("url"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "ftp://example.com"}, formatRules("url"))).
				To(ConsistOf("Parameter [value] must be a valid url"))
		})

		It("validates dotted-quad and full IPv6 addresses", func() {
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "192.168.0.1"}, formatRules("ip"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "2001:0db8:0000:0000:0000:0000:0000:0001"}, formatRules("ip"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "999.1.1.1"}, formatRules("ip"))).
				To(ConsistOf("Parameter [value] must be a valid ip"))
		})

		It("validates strict dates", func() {
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "2026-08-30"}, formatRules("date"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "30/08/2026"}, formatRules("date"))).
				To(ConsistOf("Parameter [value] must be a valid date"))
		})

		It("validates hex colors with and without the hash", func() {
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "#a1b2c3"}, formatRules("hexColor"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "fff"}, formatRules("hexColor"))).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"value": "#12345"}, formatRules("hexColor"))).
				To(ConsistOf("Parameter [value] must be a valid hexColor"))
		})
	})

	Describe("enums", func() {
		It("matches on the value's string form", func() {
			rules := zipdemographics.RuleSet{
				"unit": {Type: "string", Enum: []string{"miles", "km"}},
			}
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"unit": "km"}, rules)).To(BeEmpty())
			Expect(zipdemographics.Validate(zipdemographics.ParameterBag{"unit": "leagues"}, rules)).
				To(ConsistOf("Parameter [unit] must be one of: miles, km"))
		})
	})

	Describe("ordering", func() {
		It("returns the same violation set regardless of bag construction order", func() {
			rules := zipdemographics.RuleSet{
				"alpha": {Type: "string", Required: true},
				"beta":  {Type: "integer", Required: true},
				"gamma": {Type: "string", MinLength: intPtr(3)},
			}
			first := zipdemographics.Validate(zipdemographics.ParameterBag{"gamma": "ab"}, rules)
			second := zipdemographics.Validate(zipdemographics.ParameterBag{"gamma": "ab"}, rules)
			Expect(first).To(Equal(second))
			Expect(first).To(ConsistOf(
				"Required parameter [alpha] is missing",
				"Required parameter [beta] is missing",
				"Parameter [gamma] must be at least 3 characters",
			))
		})

		It("does not mutate the bag", func() {
			bag := zipdemographics.ParameterBag{"zip": "90210"}
			zipdemographics.Validate(bag, zipRules)
			Expect(bag).To(Equal(zipdemographics.ParameterBag{"zip": "90210"}))
		})
	})
})
