package e2e_test

import (
	"context"

	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/aggerrors"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/driver"
	"github.com/Vinceyn/Federated-Learning-Secure-Agg/pkg/party"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Secure aggregation scenarios", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	// S1: N=4, t=2, no dropouts.
	It("aggregates four clients with no dropouts (S1)", func() {
		secrets := []float64{131070.2132, 3.14159265, -42, 6}
		run := driver.New(secrets, 2, nil)

		mean, err := run.Execute(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Survivors()).To(HaveLen(4))

		reference := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
		Expect(mean).To(BeNumerically("~", reference, 1e-4))
		Expect(mean).To(BeNumerically("~", 32759.339, 1e-2))
	})

	// S2: N=4, t=2, client #0 dropped between round 1 and round 2.
	It("reconstructs the mean when client #0 drops between round 1 and round 2 (S2)", func() {
		secrets := []float64{131070.2132, 3.14159265, -42, 6}
		ids := driver.New(secrets, 2, nil).ClientIDs()
		run := driver.New(secrets, 2, driver.DropoutSchedule{2: {ids[0]}})

		mean, err := run.Execute(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Survivors()).To(HaveLen(3))

		reference := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
		Expect(mean).To(BeNumerically("~", reference, 1e-4))
		Expect(mean).To(BeNumerically("~", -10.9528, 1e-2))
	})

	// S3: N=5, t=3, one dropout between round 2 and round 3.
	It("either reconstructs or reports BelowThreshold for a round-2/3 dropout (S3)", func() {
		secrets := []float64{1, 2, 3, 4, 5}
		ids := driver.New(secrets, 3, nil).ClientIDs()
		run := driver.New(secrets, 3, driver.DropoutSchedule{3: {ids[0]}})

		mean, err := run.Execute(ctx)
		if err != nil {
			Expect(err).To(MatchError(aggerrors.ErrBelowThreshold))
			return
		}
		// The dropped client's masked value was already summed in round 2,
		// so it is still a member of U3.
		Expect(run.Survivors()).To(HaveLen(5))
		reference := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
		Expect(mean).To(BeNumerically("~", reference, 1e-4))
	})

	// S4: N=2, t=2, any dropout anywhere fails.
	It("always reports BelowThreshold for a 2-of-2 run with any dropout (S4)", func() {
		secrets := []float64{1, 2}
		ids := driver.New(secrets, 2, nil).ClientIDs()

		for round := 1; round <= 3; round++ {
			run := driver.New(secrets, 2, driver.DropoutSchedule{round: {ids[0]}})
			_, err := run.Execute(ctx)
			Expect(err).To(MatchError(aggerrors.ErrBelowThreshold), "dropout before round %d", round)
		}
	})

	// S5: N=10, t=5, two dropouts between rounds 1 and 2.
	It("recovers both dropped clients' masks for a 10-party run (S5)", func() {
		secrets := make([]float64, 10)
		for i := range secrets {
			secrets[i] = float64(i) + 0.5
		}
		ids := driver.New(secrets, 5, nil).ClientIDs()
		dropped := []party.ID{ids[0], ids[1]}
		run := driver.New(secrets, 5, driver.DropoutSchedule{2: dropped})

		mean, err := run.Execute(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Survivors()).To(HaveLen(8))

		reference := driver.AggregateWithoutSecrecy(secrets, run.ClientIDs(), run.Survivors())
		Expect(mean).To(BeNumerically("~", reference, 1e-4))
	})

	// S6: repeated runs over identical inputs reproduce the same result.
	// Each run draws its own fresh key material, so this checks the
	// property that holds without a fixed randomness source: running S1
	// twice independently converges on the same reconstructed mean. The
	// stronger byte-for-byte transcript property, with a fixed seeded
	// reader, is exercised in pkg/client's determinism test.
	It("reproduces the same mean across independent runs of S1 (S6)", func() {
		secrets := []float64{131070.2132, 3.14159265, -42, 6}

		run1 := driver.New(secrets, 2, nil)
		mean1, err := run1.Execute(ctx)
		Expect(err).NotTo(HaveOccurred())

		run2 := driver.New(secrets, 2, nil)
		mean2, err := run2.Execute(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(mean1).To(BeNumerically("~", mean2, 1e-9))
	})
})
