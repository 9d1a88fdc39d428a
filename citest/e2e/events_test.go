package e2e_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flexmod/flexmod/citest/testutil"
	"github.com/flexmod/flexmod/internal/event"
)

var _ = Describe("Event Stream", func() {
	var (
		fixture *testutil.ModFixture
		stream  *testutil.EventStream
	)

	BeforeEach(func() {
		fixture = newLampMod()
		var err error
		stream, err = testServer.Subscribe(ctx, fixture.Name)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if stream != nil {
			stream.Close()
		}
	})

	It("should stream apply results for the mod", func() {
		_, err := client.Apply(ctx, fixture.Name, false)
		Expect(err).NotTo(HaveOccurred())

		evt, err := stream.WaitFor(string(event.ApplyCompleted), 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(evt.Mod()).To(Equal(fixture.Name))

		var data event.ApplyCompletedData
		Expect(evt.Decode(&data)).To(Succeed())
		Expect(data.Applied).To(Equal(2))
		Expect(data.DryRun).To(BeFalse())

		Eventually(func() int {
			return stream.Received().CountType(string(event.PatchApplied))
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(2))
	})

	It("should stream settings updates", func() {
		_, err := client.PatchSettings(ctx, fixture.Name, map[string]any{"Hp": 7})
		Expect(err).NotTo(HaveOccurred())

		// Creating the settings file announces a reconcile first.
		Eventually(func() []string {
			for _, evt := range stream.Received().FilterType(string(event.SettingsUpdated)) {
				var data event.SettingsUpdatedData
				if evt.Decode(&data) == nil && data.Reason == "set" {
					return data.Changed
				}
			}
			return nil
		}, 5*time.Second, 50*time.Millisecond).Should(Equal([]string{"Hp"}))
	})

	It("should leave out events of other mods", func() {
		other := newLampMod()
		_, err := client.Apply(ctx, other.Name, false)
		Expect(err).NotTo(HaveOccurred())
		_, err = client.Apply(ctx, fixture.Name, true)
		Expect(err).NotTo(HaveOccurred())

		evt, err := stream.WaitFor(string(event.ApplyCompleted), 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(evt.Properties().Get("dryRun").Bool()).To(BeTrue())

		matcher := stream.Received()
		Expect(matcher.ForMod(other.Name).CountType(string(event.ApplyCompleted))).To(BeZero())
		Expect(matcher.ForMod(fixture.Name).CountType(string(event.ApplyCompleted))).To(Equal(1))
	})
})
