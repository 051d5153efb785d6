package sqlinline

const QCreditSelectBalance = `--sql 7c901d44-02ae-4786-bf9f-b64e354b5603
select balance
from credit_balances
where user_id = $1::uuid
limit 1;
`

// QCreditDeduct debits only when the balance covers the amount. No row means
// the balance was short.
const QCreditDeduct = `--sql 3021d0fc-b056-42f6-a205-59757340f0af
with debited as (
    update credit_balances
    set balance = balance - $2::int,
        updated_at = now()
    where user_id = $1::uuid
      and balance >= $2::int
    returning user_id, balance
),
recorded as (
    insert into credit_transactions (id, user_id, amount, balance_after, reason, reference_id, created_at)
    select gen_random_uuid(), user_id, -$2::int, balance, $3::text, nullif($4::text, ''), now()
    from debited
    returning balance_after
)
select balance_after
from recorded;
`

const QCreditGrant = `--sql 8f91df8a-abff-420b-9614-c4f750cbc222
with credited as (
    insert into credit_balances (user_id, balance, updated_at)
    values ($1::uuid, $2::int, now())
    on conflict (user_id) do update set
        balance = credit_balances.balance + excluded.balance,
        updated_at = now()
    returning user_id, balance
),
recorded as (
    insert into credit_transactions (id, user_id, amount, balance_after, reason, reference_id, created_at)
    select gen_random_uuid(), user_id, $2::int, balance, $3::text, null, now()
    from credited
    returning balance_after
)
select balance_after
from recorded;
`
