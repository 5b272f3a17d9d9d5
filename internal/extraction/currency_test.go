package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseCurrency", func() {
	DescribeTable("parsing amounts",
		func(token string, expected float64) {
			v, err := ParseCurrency(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("thousands comma with decimal dot", "1,234.56", 1234.56),
		Entry("decimal comma", "45,90", 45.90),
		Entry("currency symbol", "$12.00", 12.00),
		Entry("several thousands separators", "1,234,567.89", 1234567.89),
		Entry("several commas and no dot", "1,234,50", 1234.50),
		Entry("integer", "45", 45.0),
		Entry("trailing debris", "12.00.", 12.00),
		Entry("surrounding letters", "B/ 7.50", 7.50),
	)

	When("the token has no digits", func() {
		It("should return ErrNoDigits", func() {
			_, err := ParseCurrency("$,.")
			Expect(err).To(MatchError(ErrNoDigits))
		})
	})

	When("the token is empty", func() {
		It("should return ErrNoDigits", func() {
			_, err := ParseCurrency("")
			Expect(err).To(MatchError(ErrNoDigits))
		})
	})
})
